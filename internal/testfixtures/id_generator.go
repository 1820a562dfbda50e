package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator yields "<prefix>-<n>" identifiers in sequence.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
	issued  []string
}

// NewIDGenerator uses prefix, or "evt" when prefix is empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "evt"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	id := fmt.Sprintf("%s-%d", g.prefix, g.counter)
	g.issued = append(g.issued, id)
	return id
}

// NextFunc returns Next for injection into adapters.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued returns every identifier handed out so far.
func (g *IDGenerator) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}

// Reset restarts the sequence under a new prefix.
func (g *IDGenerator) Reset(prefix string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prefix != "" {
		g.prefix = prefix
	}
	g.counter = 0
	g.issued = nil
}
