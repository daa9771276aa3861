package market

import "testing"

func TestRegistryCreateAllocatesMonotonicIds(t *testing.T) {
	r := NewRegistry()
	m0 := r.Create()
	m1 := r.Create()

	if m0.Id != 0 || m1.Id != 1 {
		t.Fatalf("expected ids 0,1 got %d,%d", m0.Id, m1.Id)
	}
	if r.Count() != 2 {
		t.Fatalf("expected count 2, got %d", r.Count())
	}
}

func TestRegistryGetNotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get(42); err != ErrMarketNotFound {
		t.Fatalf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestRegistryListActiveExcludesResolved(t *testing.T) {
	r := NewRegistry()
	m0 := r.Create()
	m1 := r.Create()
	m1.Resolved = true

	active := r.ListActive()
	if len(active) != 1 || active[0].Id != m0.Id {
		t.Fatalf("expected only market 0 active, got %v", active)
	}
	if len(r.List()) != 2 {
		t.Fatalf("expected List to return both markets")
	}
}
