package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification event.
type Kind string

const (
	// KindReservationPromoted is emitted when a waiting reservation reaches
	// the head of its queue and claims a copy.
	KindReservationPromoted Kind = "reservation_promoted"
	// KindRecommendationDegraded is emitted when the orchestrator served a
	// fallback list instead of computed recommendations.
	KindRecommendationDegraded Kind = "recommendation_degraded"
)

// Event is the payload handed to the external notification transport. The
// core does not perform delivery itself.
type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	UserID  string    `json:"user_id,omitempty"`
	TitleID string    `json:"title_id,omitempty"`
	LeaseID string    `json:"lease_id,omitempty"`
	At      time.Time `json:"at"`
}

// NewEvent returns an Event with a fresh id and timestamp.
func NewEvent(kind Kind, userID, titleID string) Event {
	return Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		UserID:  userID,
		TitleID: titleID,
		At:      time.Now(),
	}
}

// Notifier hands events off to an external delivery system. Publish must not
// block on slow consumers; delivery is at-most-once from the core's view.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// InMemory is a local Notifier mainly for tests and single-process setups.
// Subscribers receive events on buffered channels; a full channel drops the
// event rather than blocking the publisher.
type InMemory struct {
	mu        sync.Mutex
	subs      []chan Event
	published uint64
	delivered uint64
}

// NewInMemory returns a new InMemory notifier.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Publish implements Notifier.Publish.
func (n *InMemory) Publish(ctx context.Context, ev Event) error {
	n.mu.Lock()
	chans := append([]chan Event(nil), n.subs...)
	n.mu.Unlock()
	atomic.AddUint64(&n.published, 1)
	for _, ch := range chans {
		select {
		case ch <- ev:
			atomic.AddUint64(&n.delivered, 1)
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber. The channel is closed when ctx is
// cancelled.
func (n *InMemory) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)
	n.mu.Lock()
	n.subs = append(n.subs, ch)
	n.mu.Unlock()
	go func() {
		<-ctx.Done()
		n.mu.Lock()
		for i, c := range n.subs {
			if c == ch {
				n.subs[i] = n.subs[len(n.subs)-1]
				n.subs = n.subs[:len(n.subs)-1]
				close(c)
				break
			}
		}
		n.mu.Unlock()
	}()
	return ch
}

// Metrics reports publish/delivery counts.
type Metrics struct {
	Published uint64
	Delivered uint64
}

// Metrics returns current counters for the notifier.
func (n *InMemory) Metrics() Metrics {
	return Metrics{
		Published: atomic.LoadUint64(&n.published),
		Delivered: atomic.LoadUint64(&n.delivered),
	}
}
