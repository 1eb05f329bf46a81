package inventory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sarmadarshad321/booksphere/v1/lock"
	"github.com/sarmadarshad321/booksphere/v1/metrics"
	"github.com/sarmadarshad321/booksphere/v1/store"
)

var tracer = otel.Tracer("github.com/sarmadarshad321/booksphere/v1/inventory")

var (
	// ErrInsufficientStock means no copy was available. The counters are
	// untouched; this is a normal business outcome.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrContention means the title's lock could not be acquired within the
	// bounded wait. The lock was never granted, so no state changed; the
	// caller may retry.
	ErrContention = errors.New("inventory: lock contention")
	// ErrNotFound means the title id does not exist in the durable store.
	ErrNotFound = errors.New("inventory: title not found")
)

const defaultLockTimeout = 5 * time.Second

// Coordinator serializes mutations to a single title's availability counter
// while unrelated titles proceed fully in parallel. A separate global
// read/write lock covers aggregate reads and bulk writes.
//
// The global lock and the per-title locks are independent mechanisms: the
// coordinator never holds both at once, so a BulkRestock and a concurrent
// Borrow on the same title are not mutually exclusive. Callers that need
// atomicity across both must sequence the calls themselves.
type Coordinator struct {
	locks       *lock.Registry
	global      sync.RWMutex
	store       store.TitleStore
	lockTimeout time.Duration
	counters    *metrics.Counters

	borrowCounter     prometheus.Counter
	returnCounter     prometheus.Counter
	contentionCounter prometheus.Counter
	traceEnabled      bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLockTimeout sets the bounded wait used by Borrow and ReserveBulk before
// they give up with ErrContention.
func WithLockTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.lockTimeout = d
	}
}

// WithCounters shares a Counters set with the coordinator. By default a
// private set is created.
func WithCounters(cs *metrics.Counters) Option {
	return func(c *Coordinator) {
		c.counters = cs
	}
}

// WithMetrics enables Prometheus collectors using the provided registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Coordinator) {
		c.borrowCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booksphere_inventory_borrow_total",
			Help: "Total number of successful borrows",
		})
		c.returnCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booksphere_inventory_return_total",
			Help: "Total number of successful returns",
		})
		c.contentionCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booksphere_inventory_contention_total",
			Help: "Total number of borrow attempts that timed out on the title lock",
		})
		reg.MustRegister(c.borrowCounter, c.returnCounter, c.contentionCounter)
	}
}

// WithTracing enables OpenTelemetry spans on mutating operations.
func WithTracing() Option {
	return func(c *Coordinator) {
		c.traceEnabled = true
	}
}

// New returns a Coordinator reading and writing titles through s.
func New(s store.TitleStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		locks:       lock.NewRegistry(),
		store:       s,
		lockTimeout: defaultLockTimeout,
		counters:    metrics.NewCounters(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Borrow takes one copy of the title. It waits up to the configured lock
// timeout for the title's lock; on timeout it returns ErrContention without
// touching any state. With the lock held it reads the current availability,
// returns ErrInsufficientStock if no copy is free, otherwise decrements and
// writes the title back before releasing the lock.
func (c *Coordinator) Borrow(ctx context.Context, titleID string) error {
	if c.traceEnabled {
		var span trace.Span
		ctx, span = tracer.Start(ctx, "Inventory.Borrow")
		defer span.End()
		span.SetAttributes(attribute.String("booksphere.title_id", titleID))
	}
	if err := c.locks.AcquireWithin(ctx, titleID, c.lockTimeout); err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			c.counters.IncContention()
			metrics.ContentionCounter.Inc()
			if c.contentionCounter != nil {
				c.contentionCounter.Inc()
			}
			return ErrContention
		}
		return err
	}
	defer c.locks.Release(titleID)

	t, ok, err := c.store.GetTitle(ctx, titleID)
	if err != nil {
		c.counters.IncFailedOp()
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if t.AvailableCopies <= 0 {
		c.counters.IncFailedOp()
		metrics.FailedOpCounter.Inc()
		return ErrInsufficientStock
	}
	t.AvailableCopies--
	if err := c.store.SaveTitle(ctx, t); err != nil {
		c.counters.IncFailedOp()
		return err
	}
	c.counters.IncBorrow()
	metrics.BorrowCounter.Inc()
	if c.borrowCounter != nil {
		c.borrowCounter.Inc()
	}
	return nil
}

// GiveBack returns one copy of the title. A return must always be allowed to
// complete, so the lock acquisition blocks without a timeout (it still honors
// ctx cancellation). Availability never grows past the total.
func (c *Coordinator) GiveBack(ctx context.Context, titleID string) error {
	if c.traceEnabled {
		var span trace.Span
		ctx, span = tracer.Start(ctx, "Inventory.GiveBack")
		defer span.End()
		span.SetAttributes(attribute.String("booksphere.title_id", titleID))
	}
	if err := c.locks.Acquire(ctx, titleID); err != nil {
		return err
	}
	defer c.locks.Release(titleID)

	t, ok, err := c.store.GetTitle(ctx, titleID)
	if err != nil {
		c.counters.IncFailedOp()
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if t.AvailableCopies < t.TotalCopies {
		t.AvailableCopies++
		if err := c.store.SaveTitle(ctx, t); err != nil {
			c.counters.IncFailedOp()
			return err
		}
	}
	c.counters.IncReturn()
	metrics.ReturnCounter.Inc()
	if c.returnCounter != nil {
		c.returnCounter.Inc()
	}
	return nil
}

// ReserveBulk atomically checks that at least n copies are available and
// decrements by n. It shares Borrow's bounded lock wait and contention
// semantics.
func (c *Coordinator) ReserveBulk(ctx context.Context, titleID string, n int) error {
	if n <= 0 {
		return nil
	}
	if err := c.locks.AcquireWithin(ctx, titleID, c.lockTimeout); err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			c.counters.IncContention()
			metrics.ContentionCounter.Inc()
			if c.contentionCounter != nil {
				c.contentionCounter.Inc()
			}
			return ErrContention
		}
		return err
	}
	defer c.locks.Release(titleID)

	t, ok, err := c.store.GetTitle(ctx, titleID)
	if err != nil {
		c.counters.IncFailedOp()
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if t.AvailableCopies < n {
		c.counters.IncFailedOp()
		metrics.FailedOpCounter.Inc()
		return ErrInsufficientStock
	}
	t.AvailableCopies -= n
	if err := c.store.SaveTitle(ctx, t); err != nil {
		c.counters.IncFailedOp()
		return err
	}
	return nil
}

// IsAvailable reports whether at least one copy of the title is free. The
// read happens under the title's lock for a consistent snapshot.
func (c *Coordinator) IsAvailable(ctx context.Context, titleID string) (bool, error) {
	n, err := c.AvailableCount(ctx, titleID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AvailableCount returns the current availability of the title under its lock.
func (c *Coordinator) AvailableCount(ctx context.Context, titleID string) (int, error) {
	if err := c.locks.Acquire(ctx, titleID); err != nil {
		return 0, err
	}
	defer c.locks.Release(titleID)

	t, ok, err := c.store.GetTitle(ctx, titleID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotFound
	}
	return t.AvailableCopies, nil
}

// BulkRestock increases total and available copies for each listed title. It
// holds the global exclusive lock for the whole sweep, not the individual
// title locks, so single-title operations on the same titles may interleave.
// Unknown title ids are skipped with a log line; the store owns the title
// lifecycle.
func (c *Coordinator) BulkRestock(ctx context.Context, added map[string]int) error {
	if c.traceEnabled {
		var span trace.Span
		ctx, span = tracer.Start(ctx, "Inventory.BulkRestock")
		defer span.End()
		span.SetAttributes(attribute.Int("booksphere.titles", len(added)))
	}
	c.global.Lock()
	defer c.global.Unlock()

	for id, n := range added {
		if n <= 0 {
			continue
		}
		t, ok, err := c.store.GetTitle(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			slog.Warn("booksphere: bulk restock skipped unknown title", "title_id", id)
			continue
		}
		t.TotalCopies += n
		t.AvailableCopies += n
		if err := c.store.SaveTitle(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// AggregateCounts is the result of an aggregate read over all titles.
type AggregateCounts struct {
	TotalCopies    int
	TotalAvailable int
}

// Aggregate sums copy counters over every title under the global shared lock.
// It runs concurrently with other aggregate reads and excludes bulk writes.
func (c *Coordinator) Aggregate(ctx context.Context) (AggregateCounts, error) {
	c.global.RLock()
	defer c.global.RUnlock()

	titles, err := c.store.ListTitles(ctx)
	if err != nil {
		return AggregateCounts{}, err
	}
	var agg AggregateCounts
	for _, t := range titles {
		agg.TotalCopies += t.TotalCopies
		agg.TotalAvailable += t.AvailableCopies
	}
	return agg, nil
}

// Counters returns a snapshot of the coordinator's named counters.
func (c *Coordinator) Counters() map[string]uint64 {
	return c.counters.Snapshot()
}
