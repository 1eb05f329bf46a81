package catalog

import "time"

// Title is a catalog entry with copy counters. The coordinator enforces
// 0 <= AvailableCopies <= TotalCopies under concurrent mutation.
type Title struct {
	ID              string
	Name            string
	Author          string
	Genres          []string
	Year            int
	TotalCopies     int
	AvailableCopies int
}

// Demand is the fraction of copies currently out. Titles never restocked
// report zero demand.
func (t Title) Demand() float64 {
	if t.TotalCopies <= 0 {
		return 0
	}
	return float64(t.TotalCopies-t.AvailableCopies) / float64(t.TotalCopies)
}

// User is a read-only view of a library member used by the recommendation
// strategies.
type User struct {
	ID              string
	Name            string
	PreferredGenres []string
	BorrowedTitles  []string
}

// QueuedReservation is a live waiting-list entry. Positions are 1-based and
// contiguous per title; removing an entry renumbers the remainder.
type QueuedReservation struct {
	RequestID int64
	UserID    string
	TitleID   string
	Position  int
	CreatedAt time.Time
}

// ReservationRequest is the transient payload carried by the asynchronous
// hand-off channel. It is not persisted.
type ReservationRequest struct {
	UserID      string
	TitleID     string
	SubmittedAt time.Time
}
