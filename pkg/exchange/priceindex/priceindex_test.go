package priceindex

import "testing"

func TestFindLastSetEmpty(t *testing.T) {
	idx := New()
	if got := idx.FindLastSet(BPS); got != None {
		t.Fatalf("expected None on empty index, got %d", got)
	}
}

func TestFindLastSetDescendingScan(t *testing.T) {
	idx := New()
	idx.Set(500)
	idx.Set(400)
	idx.Set(600)

	if got := idx.FindLastSet(BPS); got != 600 {
		t.Fatalf("expected 600, got %d", got)
	}
	if got := idx.FindLastSet(600); got != 500 {
		t.Fatalf("expected 500 below 600, got %d", got)
	}
	if got := idx.FindLastSet(500); got != 400 {
		t.Fatalf("expected 400 below 500, got %d", got)
	}
	if got := idx.FindLastSet(400); got != None {
		t.Fatalf("expected None below 400, got %d", got)
	}
}

func TestSetUnset(t *testing.T) {
	idx := New()
	idx.Set(1)
	if !idx.IsSet(1) {
		t.Fatal("expected tick 1 set")
	}
	idx.Unset(1)
	if idx.IsSet(1) {
		t.Fatal("expected tick 1 unset")
	}
	if got := idx.FindLastSet(BPS); got != None {
		t.Fatalf("expected None after unset, got %d", got)
	}
}

func TestFindLastSetWordBoundary(t *testing.T) {
	idx := New()
	idx.Set(63)
	idx.Set(64)
	idx.Set(127)

	if got := idx.FindLastSet(BPS); got != 127 {
		t.Fatalf("expected 127, got %d", got)
	}
	if got := idx.FindLastSet(127); got != 64 {
		t.Fatalf("expected 64, got %d", got)
	}
	if got := idx.FindLastSet(64); got != 63 {
		t.Fatalf("expected 63, got %d", got)
	}
}

func TestFindLastSetAtBoundsOfRange(t *testing.T) {
	idx := New()
	idx.Set(1)
	idx.Set(BPS - 1)

	if got := idx.FindLastSet(BPS); got != BPS-1 {
		t.Fatalf("expected %d, got %d", BPS-1, got)
	}
	if got := idx.FindLastSet(1); got != None {
		t.Fatalf("expected None below tick 1, got %d", got)
	}
	if got := idx.FindLastSet(2); got != 1 {
		t.Fatalf("expected tick 1, got %d", got)
	}
}
