package store

import (
	"context"
	"sync"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

// TitleStore abstracts the durable title records. The coordinator reads the
// current counters before each mutation and writes the updated value back
// before releasing the title's lock, so the store and the lock-protected view
// never diverge for committed operations.
type TitleStore interface {
	// GetTitle retrieves the title for the given id. The boolean return
	// indicates whether the id was found.
	GetTitle(ctx context.Context, id string) (catalog.Title, bool, error)
	// SaveTitle writes the title back to the store.
	SaveTitle(ctx context.Context, t catalog.Title) error
	// ListTitles returns all titles. It is used for aggregate reads and as
	// the recommendation snapshot source.
	ListTitles(ctx context.Context) ([]catalog.Title, error)
}

// ReservationStore holds the durable reservation records the in-memory
// waiting lists are layered above.
type ReservationStore interface {
	SaveReservation(ctx context.Context, r catalog.QueuedReservation) error
	DeleteReservation(ctx context.Context, requestID int64) error
}

// InMemory is a Store implementation backed by maps. It is used in tests and
// single-process setups.
type InMemory struct {
	mu           sync.RWMutex
	titles       map[string]catalog.Title
	reservations map[int64]catalog.QueuedReservation
}

// NewInMemory returns an empty InMemory store.
func NewInMemory() *InMemory {
	return &InMemory{
		titles:       make(map[string]catalog.Title),
		reservations: make(map[int64]catalog.QueuedReservation),
	}
}

// GetTitle implements TitleStore.GetTitle.
func (s *InMemory) GetTitle(ctx context.Context, id string) (catalog.Title, bool, error) {
	s.mu.RLock()
	t, ok := s.titles[id]
	s.mu.RUnlock()
	return t, ok, nil
}

// SaveTitle implements TitleStore.SaveTitle.
func (s *InMemory) SaveTitle(ctx context.Context, t catalog.Title) error {
	s.mu.Lock()
	s.titles[t.ID] = t
	s.mu.Unlock()
	return nil
}

// ListTitles implements TitleStore.ListTitles.
func (s *InMemory) ListTitles(ctx context.Context) ([]catalog.Title, error) {
	s.mu.RLock()
	out := make([]catalog.Title, 0, len(s.titles))
	for _, t := range s.titles {
		out = append(out, t)
	}
	s.mu.RUnlock()
	return out, nil
}

// SaveReservation implements ReservationStore.SaveReservation.
func (s *InMemory) SaveReservation(ctx context.Context, r catalog.QueuedReservation) error {
	s.mu.Lock()
	s.reservations[r.RequestID] = r
	s.mu.Unlock()
	return nil
}

// DeleteReservation implements ReservationStore.DeleteReservation.
func (s *InMemory) DeleteReservation(ctx context.Context, requestID int64) error {
	s.mu.Lock()
	delete(s.reservations, requestID)
	s.mu.Unlock()
	return nil
}

// ReservationCount reports the number of durable reservation records.
func (s *InMemory) ReservationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reservations)
}
