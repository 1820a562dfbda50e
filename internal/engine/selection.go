package engine

import (
	"slices"
	"sync"
)

// Selection tracks the selected and hovered events. SelectedID is set
// exactly when one event is selected.
type Selection struct {
	notifier

	mu       sync.RWMutex
	selected map[string]struct{}
	primary  string
	hovered  string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{selected: make(map[string]struct{})}
}

// Select makes id the only selected event. An empty id is ignored.
func (s *Selection) Select(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	s.selected = map[string]struct{}{id: {}}
	s.primary = id
	s.mu.Unlock()
	s.notify()
}

// Deselect clears the selection but keeps the hover.
func (s *Selection) Deselect() {
	s.mu.Lock()
	s.selected = make(map[string]struct{})
	s.primary = ""
	s.mu.Unlock()
	s.notify()
}

// Toggle adds id to or removes it from a multi-selection. An empty id is
// ignored.
func (s *Selection) Toggle(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	s.primary = ""
	if len(s.selected) == 1 {
		for only := range s.selected {
			s.primary = only
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Clear drops both the selection and the hover.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.selected = make(map[string]struct{})
	s.primary = ""
	s.hovered = ""
	s.mu.Unlock()
	s.notify()
}

// Hover marks id as hovered; "" clears the hover.
func (s *Selection) Hover(id string) {
	s.mu.Lock()
	s.hovered = id
	s.mu.Unlock()
	s.notify()
}

// IsSelected reports whether id is part of the selection.
func (s *Selection) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// SelectedID returns the sole selected id.
func (s *Selection) SelectedID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primary, s.primary != ""
}

// HoveredID returns the hovered id.
func (s *Selection) HoveredID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hovered, s.hovered != ""
}

// SelectedIDs returns the selected ids in sorted order.
func (s *Selection) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
