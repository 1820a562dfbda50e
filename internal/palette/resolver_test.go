package palette

import "testing"

func TestResolver_Priority(t *testing.T) {
	t.Parallel()

	r := NewResolver(ResolverOptions{
		ColorMap:  map[string]string{"wellness": "#34d399"},
		AutoColor: true,
	})

	if got := r.Resolve("#123456", "wellness", "Yoga"); got != "#123456" {
		t.Fatalf("explicit color should win, got %s", got)
	}
	if got := r.Resolve("", "wellness", "Yoga"); got != "#34d399" {
		t.Fatalf("color map should win over palette, got %s", got)
	}
	if got := r.Resolve("", "", "Standup"); got != Vivid[0] {
		t.Fatalf("first auto key should get the first palette color, got %s", got)
	}
}

func TestResolver_MemoizesPerKey(t *testing.T) {
	t.Parallel()

	r := NewResolver(ResolverOptions{AutoColor: true})

	work := r.Resolve("", "work", "Planning")
	life := r.Resolve("", "life", "Dinner")
	again := r.Resolve("", "work", "Review")

	if work != again {
		t.Fatalf("same key resolved to %s and %s", work, again)
	}
	if work == life {
		t.Fatalf("distinct keys share color %s", work)
	}
	if life != Vivid[1] {
		t.Fatalf("second key should get the second palette color, got %s", life)
	}
}

func TestResolver_WrapsAroundPalette(t *testing.T) {
	t.Parallel()

	r := NewResolver(ResolverOptions{AutoColor: true})
	var first string
	for i := 0; i <= len(Vivid); i++ {
		c := r.Resolve("", "", string(rune('a'+i)))
		if i == 0 {
			first = c
		}
		if i == len(Vivid) && c != first {
			t.Fatalf("expected wraparound to %s, got %s", first, c)
		}
	}
}

func TestResolver_AccentGeneratesPalette(t *testing.T) {
	t.Parallel()

	r := NewResolver(ResolverOptions{Accent: "#ef4444"})
	want := Generate("#ef4444", DefaultSize)[0]
	if got := r.Resolve("", "work", ""); got != want {
		t.Fatalf("expected generated color %s, got %s", want, got)
	}
}

func TestResolver_Disabled(t *testing.T) {
	t.Parallel()

	r := NewResolver(ResolverOptions{})
	if r.Enabled() {
		t.Fatalf("expected empty resolver to be disabled")
	}
	if got := r.Resolve("", "work", "Planning"); got != "" {
		t.Fatalf("expected no color, got %s", got)
	}

	var nilResolver *Resolver
	if got := nilResolver.Resolve("#abcdef", "", ""); got != "#abcdef" {
		t.Fatalf("nil resolver should still honor explicit colors, got %s", got)
	}
}
