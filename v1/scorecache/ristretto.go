package scorecache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Ristretto implements Cache using dgraph-io/ristretto. Eviction is
// cost-based and handled by ristretto itself; maxEntries does not apply.
type Ristretto[T any] struct {
	c *ristretto.Cache
}

// NewRistretto returns a Cache backed by ristretto with defaults sized for a
// per-user score-set workload.
func NewRistretto[T any]() (*Ristretto[T], error) {
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Ristretto[T]{c: rc}, nil
}

// Get implements Cache.Get.
func (r *Ristretto[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	v, ok := r.c.Get(key)
	if !ok {
		return zero, false, nil
	}
	val, _ := v.(T)
	return val, true, nil
}

// Set implements Cache.Set. Writes are flushed before returning so a
// subsequent Get observes the entry.
func (r *Ristretto[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.c.SetWithTTL(key, value, 1, ttl)
	r.c.Wait()
	return nil
}

// Invalidate implements Cache.Invalidate.
func (r *Ristretto[T]) Invalidate(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.c.Del(key)
	r.c.Wait()
	return nil
}

// Clear implements Cache.Clear.
func (r *Ristretto[T]) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.c.Clear()
	return nil
}

// Close releases resources held by the cache.
func (r *Ristretto[T]) Close() {
	r.c.Close()
}
