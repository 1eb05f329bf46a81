package scorecache

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryHitMissExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[[]string](WithSweepInterval[[]string](0))
	defer c.Close()

	if err := c.Set(ctx, "u1", []string{"a", "b"}, 20*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := c.Get(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok %v err %v", ok, err)
	}
	if len(v) != 2 || v[0] != "a" {
		t.Fatalf("unexpected value %v", v)
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "u1"); ok {
		t.Fatal("expected entry to expire")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestInMemoryMaxEntriesEviction(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[int](WithMaxEntries[int](2), WithSweepInterval[int](0))
	defer c.Close()

	_ = c.Set(ctx, "a", 1, time.Minute)
	_ = c.Set(ctx, "b", 2, time.Minute)
	// touch a so b becomes the eviction candidate
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("expected a")
	}
	_ = c.Set(ctx, "c", 3, time.Minute)

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("expected a to survive")
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Fatal("expected c to survive")
	}
}

func TestInMemorySweeper(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[int](WithSweepInterval[int](5 * time.Millisecond))
	defer c.Close()

	_ = c.Set(ctx, "a", 1, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	c.mu.RLock()
	_, ok := c.entries["a"]
	c.mu.RUnlock()
	if ok {
		t.Fatal("expected entry to be swept")
	}
}

func TestInMemoryInvalidateClear(t *testing.T) {
	ctx := context.Background()
	c := NewInMemory[int](WithSweepInterval[int](0))
	defer c.Close()

	_ = c.Set(ctx, "a", 1, time.Minute)
	_ = c.Set(ctx, "b", 2, time.Minute)

	if err := c.Invalidate(ctx, "a"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("expected a gone after invalidate")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatal("expected b gone after clear")
	}
	if c.Stats().Size != 0 {
		t.Fatalf("expected empty cache, got %d", c.Stats().Size)
	}
}
