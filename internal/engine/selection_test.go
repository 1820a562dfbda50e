package engine

import (
	"slices"
	"testing"
)

func assertSelectionInvariant(t *testing.T, s *Selection) {
	t.Helper()
	ids := s.SelectedIDs()
	id, ok := s.SelectedID()
	if len(ids) == 1 {
		if !ok || id != ids[0] {
			t.Fatalf("single selection %v should expose SelectedID, got %q", ids, id)
		}
		return
	}
	if ok {
		t.Fatalf("SelectedID %q set with %d selected ids", id, len(ids))
	}
}

func TestSelectionToggleMaintainsPrimary(t *testing.T) {
	t.Parallel()

	s := NewSelection()
	steps := []struct {
		toggle string
		want   []string
	}{
		{toggle: "b", want: []string{"b"}},
		{toggle: "a", want: []string{"a", "b"}},
		{toggle: "b", want: []string{"a"}},
		{toggle: "a", want: []string{}},
	}

	for _, step := range steps {
		s.Toggle(step.toggle)
		if got := s.SelectedIDs(); !slices.Equal(got, step.want) {
			t.Fatalf("after toggling %q: ids = %v, want %v", step.toggle, got, step.want)
		}
		assertSelectionInvariant(t, s)
	}
}

func TestSelectionSelectReplaces(t *testing.T) {
	t.Parallel()

	s := NewSelection()
	s.Toggle("a")
	s.Toggle("b")
	s.Select("c")

	if got := s.SelectedIDs(); !slices.Equal(got, []string{"c"}) {
		t.Fatalf("select should replace the multi-selection, got %v", got)
	}
	if !s.IsSelected("c") || s.IsSelected("a") {
		t.Fatalf("unexpected membership after select")
	}
	assertSelectionInvariant(t, s)
}

func TestSelectionDeselectKeepsHover(t *testing.T) {
	t.Parallel()

	s := NewSelection()
	s.Select("a")
	s.Hover("b")
	s.Deselect()

	if len(s.SelectedIDs()) != 0 {
		t.Fatalf("deselect left ids behind")
	}
	if id, ok := s.HoveredID(); !ok || id != "b" {
		t.Fatalf("deselect should keep the hover, got %q", id)
	}

	s.Select("a")
	s.Clear()
	if _, ok := s.HoveredID(); ok {
		t.Fatalf("clear should drop the hover")
	}
	assertSelectionInvariant(t, s)

	s.Hover("x")
	s.Hover("")
	if _, ok := s.HoveredID(); ok {
		t.Fatalf("empty hover should clear it")
	}
}

func TestSelectedIDsIsACopy(t *testing.T) {
	t.Parallel()

	s := NewSelection()
	s.Select("a")
	ids := s.SelectedIDs()
	ids[0] = "z"
	if !s.IsSelected("a") || s.IsSelected("z") {
		t.Fatalf("mutating the returned slice changed the selection")
	}
}

func TestSelectionIgnoresEmptyID(t *testing.T) {
	t.Parallel()

	s := NewSelection()
	notified := 0
	s.Subscribe(func() { notified++ })

	s.Select("")
	s.Toggle("")
	if got := s.SelectedIDs(); len(got) != 0 {
		t.Fatalf("empty ids must not be selected, got %v", got)
	}
	assertSelectionInvariant(t, s)

	s.Select("a")
	s.Toggle("")
	if got := s.SelectedIDs(); !slices.Equal(got, []string{"a"}) {
		t.Fatalf("empty toggle changed the selection to %v", got)
	}
	assertSelectionInvariant(t, s)
	if notified != 1 {
		t.Fatalf("expected one notification, got %d", notified)
	}
}
