package reservation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/sarmadarshad321/booksphere/v1/inventory"
	"github.com/sarmadarshad321/booksphere/v1/notify"
)

const defaultPollInterval = 250 * time.Millisecond

// Availability is the slice of the inventory coordinator the consumer loop
// needs: an availability check, a copy claim and a way to give a claimed copy
// back if no entry was waiting after all.
type Availability interface {
	AvailableCount(ctx context.Context, titleID string) (int, error)
	ReserveBulk(ctx context.Context, titleID string, n int) error
	GiveBack(ctx context.Context, titleID string) error
}

// Run drains the hand-off channel until ctx is cancelled: each request is
// appended to its title's queue, then a promotion is attempted if a copy is
// available.
//
// The availability check and the queue pop are separate operations against
// two components; Run shrinks the window by claiming the copy (ReserveBulk)
// before popping, but a caller mutating inventory between the two can still
// observe the gap. That boundary is inherent to the two-component split.
func (m *Manager) Run(ctx context.Context, inv Availability, notifier notify.Notifier) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		req, ok := m.Poll(defaultPollInterval)
		if !ok {
			continue
		}
		if _, err := m.Add(ctx, req.UserID, req.TitleID); err != nil {
			slog.Warn("booksphere: reservation enqueue failed",
				"user_id", req.UserID, "title_id", req.TitleID, "error", err)
			continue
		}
		m.promote(ctx, req.TitleID, inv, notifier)
	}
}

// promote hands the head of the title's queue to the notifier if a copy can
// be claimed. Contention on the claim is left for the next pass.
func (m *Manager) promote(ctx context.Context, titleID string, inv Availability, notifier notify.Notifier) {
	n, err := inv.AvailableCount(ctx, titleID)
	if err != nil || n <= 0 {
		return
	}
	if err := inv.ReserveBulk(ctx, titleID, 1); err != nil {
		if !errors.Is(err, inventory.ErrInsufficientStock) && !errors.Is(err, inventory.ErrContention) {
			slog.Warn("booksphere: promotion claim failed", "title_id", titleID, "error", err)
		}
		return
	}
	entry, ok, err := m.ProcessNext(ctx, titleID)
	if err != nil {
		slog.Warn("booksphere: promotion dequeue failed", "title_id", titleID, "error", err)
	}
	if !ok {
		// claimed a copy with nobody waiting; put it back
		_ = inv.GiveBack(ctx, titleID)
		return
	}

	leaseID, err := uuid.GenerateUUID()
	if err != nil {
		leaseID = ""
	}
	ev := notify.NewEvent(notify.KindReservationPromoted, entry.UserID, entry.TitleID)
	ev.LeaseID = leaseID
	if notifier != nil {
		if err := notifier.Publish(ctx, ev); err != nil {
			slog.Warn("booksphere: promotion notification failed",
				"user_id", entry.UserID, "title_id", entry.TitleID, "error", err)
		}
	}
}
