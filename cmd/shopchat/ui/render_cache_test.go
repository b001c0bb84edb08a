package ui

import (
	"testing"
)

func TestComputeKey(t *testing.T) {
	if ComputeKey("reply", 80, true) != ComputeKey("reply", 80, true) {
		t.Error("expected same key for same inputs")
	}
	if ComputeKey("reply", 80) == ComputeKey("reply", 81) {
		t.Error("width must change the key")
	}
	if ComputeKey("ab", "c") == ComputeKey("a", "bc") {
		t.Error("string boundaries must change the key")
	}
	if ComputeKey("x", true) == ComputeKey("x", false) {
		t.Error("bools must change the key")
	}
}

func TestRenderCache_GetOrCompute(t *testing.T) {
	rc := NewRenderCache(10)
	calls := 0
	compute := func() string {
		calls++
		return "rendered"
	}

	key := ComputeKey("**bold**", 80)
	if got := rc.GetOrCompute(key, compute); got != "rendered" {
		t.Fatalf("unexpected content %q", got)
	}
	rc.GetOrCompute(key, compute)

	if calls != 1 {
		t.Errorf("expected one computation, got %d", calls)
	}
	hits, misses := rc.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", hits, misses)
	}
}

func TestRenderCache_EvictsOldest(t *testing.T) {
	rc := NewRenderCache(2)
	rc.Set(1, "one")
	rc.Set(2, "two")
	rc.Set(2, "two again") // overwrite keeps position
	rc.Set(3, "three")

	if _, ok := rc.Get(1); ok {
		t.Error("oldest entry should have been evicted")
	}
	if got, _ := rc.Get(2); got != "two again" {
		t.Errorf("expected overwritten value, got %q", got)
	}
	if rc.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", rc.Len())
	}

	rc.Clear()
	if rc.Len() != 0 {
		t.Error("Clear should empty the cache")
	}
}
