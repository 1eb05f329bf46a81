package reservation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
	"github.com/sarmadarshad321/booksphere/v1/metrics"
	"github.com/sarmadarshad321/booksphere/v1/store"
)

const defaultChannelCapacity = 64

// Manager maintains one FIFO waiting list per title, layered above the
// durable reservation records, plus a bounded hand-off channel decoupling
// reservation-intent producers from the consumer loop.
//
// Positions are 1-based and contiguous per title. Any removal renumbers the
// remaining entries atomically with the removal; a concurrent reader never
// observes gaps or duplicate positions.
type Manager struct {
	mu     sync.RWMutex
	queues map[string]*titleQueue

	nextID   atomic.Int64
	requests chan catalog.ReservationRequest
	store    store.ReservationStore

	created   atomic.Uint64
	processed atomic.Uint64
	cancelled atomic.Uint64
	expired   atomic.Uint64

	depthGauge prometheus.Gauge
}

type titleQueue struct {
	mu      sync.Mutex
	entries []catalog.QueuedReservation
}

// Option configures a Manager.
type Option func(*Manager)

// WithChannelCapacity sets the hand-off channel's buffer size.
func WithChannelCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.requests = make(chan catalog.ReservationRequest, n)
		}
	}
}

// WithStore mirrors queue mutations to durable reservation records.
func WithStore(rs store.ReservationStore) Option {
	return func(m *Manager) {
		m.store = rs
	}
}

// WithMetrics exports the hand-off channel depth through the shared
// metrics.QueueDepthGauge, registering it unless the registerer already
// carries it (RegisterCoreMetrics registers the same collector).
func WithMetrics(reg prometheus.Registerer) Option {
	return func(m *Manager) {
		if err := reg.Register(metrics.QueueDepthGauge); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
		m.depthGauge = metrics.QueueDepthGauge
	}
}

// NewManager returns an empty Manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		queues:   make(map[string]*titleQueue),
		requests: make(chan catalog.ReservationRequest, defaultChannelCapacity),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) queueFor(titleID string) *titleQueue {
	m.mu.Lock()
	q, ok := m.queues[titleID]
	if !ok {
		q = &titleQueue{}
		m.queues[titleID] = q
	}
	m.mu.Unlock()
	return q
}

// Add appends a reservation for userID at the tail of the title's queue and
// returns the freshly generated monotonic request id. The durable record is
// written under the queue's lock so the store never sees an out-of-order
// append.
func (m *Manager) Add(ctx context.Context, userID, titleID string) (int64, error) {
	q := m.queueFor(titleID)
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := catalog.QueuedReservation{
		RequestID: m.nextID.Add(1),
		UserID:    userID,
		TitleID:   titleID,
		Position:  len(q.entries) + 1,
		CreatedAt: time.Now(),
	}
	if m.store != nil {
		if err := m.store.SaveReservation(ctx, entry); err != nil {
			return 0, err
		}
	}
	q.entries = append(q.entries, entry)
	m.created.Add(1)
	return entry.RequestID, nil
}

// Position returns the 1-based queue position of userID's earliest entry for
// the title. The boolean return is false if the user has no live entry.
func (m *Manager) Position(titleID, userID string) (int, bool) {
	q := m.queueFor(titleID)
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.UserID == userID {
			return e.Position, true
		}
	}
	return 0, false
}

// ProcessNext removes and returns the head entry of the title's queue,
// renumbering the remainder from 1. The boolean return is false on an empty
// queue. The caller is responsible for notifying the requester and updating
// any external reservation status.
func (m *Manager) ProcessNext(ctx context.Context, titleID string) (catalog.QueuedReservation, bool, error) {
	var zero catalog.QueuedReservation
	q := m.queueFor(titleID)
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return zero, false, nil
	}
	head := q.entries[0]
	q.entries = q.entries[1:]
	for i := range q.entries {
		q.entries[i].Position = i + 1
	}
	m.processed.Add(1)
	if m.store != nil {
		if err := m.store.DeleteReservation(ctx, head.RequestID); err != nil {
			return head, true, err
		}
	}
	return head, true, nil
}

// Cancel removes userID's earliest entry for the title and renumbers the
// remainder. It reports whether a removal occurred; cancelling a non-existent
// entry is a normal false result.
func (m *Manager) Cancel(ctx context.Context, titleID, userID string) (bool, error) {
	q := m.queueFor(titleID)
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.UserID != userID {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		for j := range q.entries {
			q.entries[j].Position = j + 1
		}
		m.cancelled.Add(1)
		if m.store != nil {
			if err := m.store.DeleteReservation(ctx, e.RequestID); err != nil {
				return true, err
			}
		}
		return true, nil
	}
	return false, nil
}

// ExpireOlderThan sweeps every queue, removing entries created before cutoff
// and renumbering each affected queue. It returns the number of removals.
// Relative order of surviving entries is unchanged.
func (m *Manager) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.RLock()
	queues := make([]*titleQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.RUnlock()

	removed := 0
	for _, q := range queues {
		q.mu.Lock()
		kept := make([]catalog.QueuedReservation, 0, len(q.entries))
		for i, e := range q.entries {
			if e.CreatedAt.Before(cutoff) {
				if m.store != nil {
					if err := m.store.DeleteReservation(ctx, e.RequestID); err != nil {
						// The durable record survived, so the entry must
						// stay queued; keep it and the unvisited tail.
						q.entries = append(kept, q.entries[i:]...)
						for j := range q.entries {
							q.entries[j].Position = j + 1
						}
						q.mu.Unlock()
						return removed, err
					}
				}
				removed++
				m.expired.Add(1)
				continue
			}
			kept = append(kept, e)
		}
		q.entries = kept
		for i := range q.entries {
			q.entries[i].Position = i + 1
		}
		q.mu.Unlock()
	}
	return removed, nil
}

// Submit places a reservation request on the hand-off channel, blocking while
// the channel is full until ctx is cancelled.
func (m *Manager) Submit(ctx context.Context, req catalog.ReservationRequest) error {
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now()
	}
	select {
	case m.requests <- req:
		if m.depthGauge != nil {
			m.depthGauge.Set(float64(len(m.requests)))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll receives the next request, waiting up to timeout. The boolean return
// is false if the wait elapsed with nothing to hand off.
func (m *Manager) Poll(timeout time.Duration) (catalog.ReservationRequest, bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case req := <-m.requests:
		if m.depthGauge != nil {
			m.depthGauge.Set(float64(len(m.requests)))
		}
		return req, true
	case <-t.C:
		return catalog.ReservationRequest{}, false
	}
}

// Stats is a snapshot of the manager's counters.
type Stats struct {
	Created         uint64
	Processed       uint64
	Cancelled       uint64
	Expired         uint64
	CurrentlyQueued int
	ChannelDepth    int
}

// Statistics returns a point-in-time snapshot across all queues.
func (m *Manager) Statistics() Stats {
	m.mu.RLock()
	queues := make([]*titleQueue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.RUnlock()

	queued := 0
	for _, q := range queues {
		q.mu.Lock()
		queued += len(q.entries)
		q.mu.Unlock()
	}
	return Stats{
		Created:         m.created.Load(),
		Processed:       m.processed.Load(),
		Cancelled:       m.cancelled.Load(),
		Expired:         m.expired.Load(),
		CurrentlyQueued: queued,
		ChannelDepth:    len(m.requests),
	}
}
