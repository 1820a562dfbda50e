package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("")

	first := gen.Next()
	second := gen.Next()

	if first != "evt-1" || second != "evt-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if issued := gen.Issued(); len(issued) != 2 {
		t.Fatalf("expected 2 issued ids, got %v", issued)
	}
}

func TestIDGeneratorReset(t *testing.T) {
	gen := NewIDGenerator("mem")
	_ = gen.Next()
	gen.Reset("rec")

	if next := gen.Next(); next != "rec-1" {
		t.Fatalf("expected rec-1 after reset, got %q", next)
	}
}
