package scorecache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache stores computed score sets keyed by user. An entry older than its TTL
// is never returned as a hit.
//
// T represents the cached value type.
type Cache[T any] interface {
	// Get retrieves the value for the given key. The boolean return
	// indicates whether a live entry was found.
	Get(ctx context.Context, key string) (T, bool, error)
	// Set stores the value for the given key for the specified TTL.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	// Invalidate removes the key, independent of TTL.
	Invalidate(ctx context.Context, key string) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
	element   *list.Element
}

// InMemory is a TTL cache with LRU eviction once maxEntries is reached. A
// background sweeper removes expired entries between reads.
type InMemory[T any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[T]
	order      *list.List
	maxEntries int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	sweepInterval time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup

	hitCounter  prometheus.Counter
	missCounter prometheus.Counter
}

// Option configures an InMemory cache.
type Option[T any] func(*InMemory[T])

// WithMaxEntries caps the number of entries. When the cap is reached the
// least recently used entry is evicted on insert. A non-positive value means
// unbounded.
func WithMaxEntries[T any](n int) Option[T] {
	return func(c *InMemory[T]) {
		c.maxEntries = n
	}
}

// WithSweepInterval sets the period of the expired-entry sweeper. A zero or
// negative duration disables it; expired entries are then only dropped on
// access.
func WithSweepInterval[T any](d time.Duration) Option[T] {
	return func(c *InMemory[T]) {
		c.sweepInterval = d
	}
}

// WithMetrics enables Prometheus hit/miss collectors on the given registerer.
func WithMetrics[T any](reg prometheus.Registerer) Option[T] {
	return func(c *InMemory[T]) {
		c.hitCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booksphere_scorecache_hits_total",
			Help: "Total number of score cache hits",
		})
		c.missCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booksphere_scorecache_misses_total",
			Help: "Total number of score cache misses",
		})
		reg.MustRegister(c.hitCounter, c.missCounter)
	}
}

const defaultSweepInterval = time.Minute

// NewInMemory returns a new in-memory score cache.
func NewInMemory[T any](opts ...Option[T]) *InMemory[T] {
	ctx, cancel := context.WithCancel(context.Background())
	c := &InMemory[T]{
		entries:       make(map[string]entry[T]),
		order:         list.New(),
		sweepInterval: defaultSweepInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sweepInterval > 0 {
		c.wg.Add(1)
		go c.sweeper()
	}
	return c
}

// Get implements Cache.Get.
func (c *InMemory[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		c.miss()
		return zero, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.order.Remove(e.element)
		delete(c.entries, key)
		c.evictions.Add(1)
		c.mu.Unlock()
		c.miss()
		return zero, false, nil
	}
	c.order.MoveToFront(e.element)
	c.mu.Unlock()
	c.hit()
	return e.value, true, nil
}

// Set implements Cache.Set.
func (c *InMemory[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = exp
		c.entries[key] = e
		c.order.MoveToFront(e.element)
		return nil
	}
	elem := c.order.PushFront(key)
	c.entries[key] = entry[T]{value: value, expiresAt: exp, element: elem}
	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		tail := c.order.Back()
		if tail != nil {
			k := tail.Value.(string)
			c.order.Remove(tail)
			delete(c.entries, k)
			c.evictions.Add(1)
		}
	}
	return nil
}

// Invalidate implements Cache.Invalidate.
func (c *InMemory[T]) Invalidate(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.order.Remove(e.element)
		delete(c.entries, key)
		c.evictions.Add(1)
	}
	c.mu.Unlock()
	return nil
}

// Clear implements Cache.Clear.
func (c *InMemory[T]) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.entries = make(map[string]entry[T])
	c.order.Init()
	c.mu.Unlock()
	return nil
}

func (c *InMemory[T]) hit() {
	c.hits.Add(1)
	if c.hitCounter != nil {
		c.hitCounter.Inc()
	}
}

func (c *InMemory[T]) miss() {
	c.misses.Add(1)
	if c.missCounter != nil {
		c.missCounter.Inc()
	}
}

func (c *InMemory[T]) sweeper() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.entries {
				if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
					c.order.Remove(e.element)
					delete(c.entries, k)
					c.evictions.Add(1)
				}
			}
			c.mu.Unlock()
		case <-c.ctx.Done():
			return
		}
	}
}

// Close stops the background sweeper.
func (c *InMemory[T]) Close() {
	c.cancel()
	c.wg.Wait()
}

// Stats reports basic usage metrics.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
}

// Stats returns current metrics for the cache.
func (c *InMemory[T]) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      size,
	}
}
