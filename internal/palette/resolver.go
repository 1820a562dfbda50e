package palette

import "sync"

// ResolverOptions configures color resolution for an adapter.
type ResolverOptions struct {
	// ColorMap maps a category (or title, when the event has no category) to
	// a color.
	ColorMap map[string]string
	// AutoColor assigns palette colors to keys missing from ColorMap.
	AutoColor bool
	// Accent selects a generated palette instead of Vivid. A non-empty accent
	// enables auto-coloring.
	Accent string
}

// Resolver resolves event colors: an explicit color wins, then an exact
// ColorMap entry, then a palette color assigned to the key on first sight
// and memoized for the resolver's lifetime.
type Resolver struct {
	mu       sync.Mutex
	colorMap map[string]string
	auto     bool
	colors   []string
	assigned map[string]string
	next     int
}

// NewResolver builds a Resolver. The color map is copied.
func NewResolver(opts ResolverOptions) *Resolver {
	r := &Resolver{
		auto:     opts.AutoColor || opts.Accent != "",
		assigned: make(map[string]string),
	}
	if len(opts.ColorMap) > 0 {
		r.colorMap = make(map[string]string, len(opts.ColorMap))
		for k, v := range opts.ColorMap {
			r.colorMap[k] = v
		}
	}
	if r.auto {
		r.colors = Generate(opts.Accent, DefaultSize)
	}
	return r
}

// Enabled reports whether the resolver can ever produce a color on its own.
func (r *Resolver) Enabled() bool {
	return r != nil && (r.auto || len(r.colorMap) > 0)
}

// Key returns the resolution key for an event: its category, else its title.
func Key(category, title string) string {
	if category != "" {
		return category
	}
	return title
}

// Resolve returns the color for an event. It returns "" when no rule applies.
func (r *Resolver) Resolve(explicit, category, title string) string {
	if explicit != "" {
		return explicit
	}
	if !r.Enabled() {
		return ""
	}

	key := Key(category, title)
	if c, ok := r.colorMap[key]; ok && c != "" {
		return c
	}
	if !r.auto || len(r.colors) == 0 {
		return ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.assigned[key]; ok {
		return c
	}
	c := r.colors[r.next%len(r.colors)]
	r.assigned[key] = c
	r.next++
	return c
}
