package lru

import (
	"fmt"
	"testing"
)

func TestGetOrCreateEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2)
	calls := map[string]int{}
	produce := func(k string, v int) func() (int, error) {
		return func() (int, error) {
			calls[k]++
			return v, nil
		}
	}

	mustGet := func(k string, v int) int {
		got, err := c.GetOrCreate(k, produce(k, v))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return got
	}

	mustGet("a", 1)
	mustGet("b", 2)
	// touch "a" so "b" becomes least-recently-used
	mustGet("a", 1)
	mustGet("c", 3) // evicts "b"

	if c.Has("b") {
		t.Fatalf("expected b to have been evicted")
	}
	if !c.Has("a") || !c.Has("c") {
		t.Fatalf("expected a and c to remain cached")
	}
	if c.Len() != 2 {
		t.Fatalf("expected capacity to be respected, got len=%d", c.Len())
	}

	// re-fetching "a" should be a cache hit, not a second produce call
	mustGet("a", 1)
	if calls["a"] != 1 {
		t.Fatalf("expected producer for 'a' to run exactly once, ran %d times", calls["a"])
	}
}

func TestGetOrCreatePropagatesProducerError(t *testing.T) {
	c := New[int, int](4)
	wantErr := fmt.Errorf("boom")
	_, err := c.GetOrCreate(1, func() (int, error) { return 0, wantErr })
	if err != wantErr {
		t.Fatalf("expected producer error to propagate, got %v", err)
	}
	if c.Has(1) {
		t.Fatalf("a failed produce must not populate the cache")
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	c := New[int, int](3)
	for i := 0; i < 100; i++ {
		i := i
		if _, err := c.GetOrCreate(i, func() (int, error) { return i, nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Len() > 3 {
			t.Fatalf("cache exceeded capacity: len=%d", c.Len())
		}
	}
	for _, want := range []int{97, 98, 99} {
		if !c.Has(want) {
			t.Fatalf("expected most-recently-inserted key %d to be present", want)
		}
	}
}
