package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sarmadarshad321/booksphere/v1/store"
)

// Mode defines auditor behaviour when a title record violates its copy
// invariant.
type Mode int

const (
	ModeObserve Mode = iota
	ModeRepair
)

// Auditor periodically scans title records and checks that every available
// count sits inside [0, TotalCopies]. Drift can appear when restocks race
// with in-flight borrows; in ModeRepair the record is clamped back into
// range, in ModeObserve it is only counted and logged.
type Auditor struct {
	store      store.TitleStore
	mode       Mode
	interval   time.Duration
	violations uint64
}

// New creates an Auditor scanning s every interval.
func New(s store.TitleStore, mode Mode, interval time.Duration) *Auditor {
	return &Auditor{store: s, mode: mode, interval: interval}
}

// Run starts the audit loop. It blocks until ctx is cancelled.
func (a *Auditor) Run(ctx context.Context) {
	if a.store == nil {
		return
	}
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Scan(ctx)
		}
	}
}

// Scan performs a single pass over every title record. It returns the number
// of violations found in this pass.
func (a *Auditor) Scan(ctx context.Context) int {
	titles, err := a.store.ListTitles(ctx)
	if err != nil {
		slog.Warn("booksphere: audit scan could not list titles", "error", err)
		return 0
	}
	found := 0
	for _, t := range titles {
		fixed := t
		if fixed.AvailableCopies < 0 {
			fixed.AvailableCopies = 0
		}
		if fixed.AvailableCopies > fixed.TotalCopies {
			fixed.AvailableCopies = fixed.TotalCopies
		}
		if fixed.AvailableCopies == t.AvailableCopies {
			continue
		}
		found++
		atomic.AddUint64(&a.violations, 1)
		slog.Warn("booksphere: copy count out of range",
			"title", t.ID, "available", t.AvailableCopies, "total", t.TotalCopies)
		if a.mode == ModeRepair {
			if err := a.store.SaveTitle(ctx, fixed); err != nil {
				slog.Warn("booksphere: audit repair failed", "title", t.ID, "error", err)
			}
		}
	}
	return found
}

// Metrics returns the total number of violations detected since start.
func (a *Auditor) Metrics() uint64 {
	return atomic.LoadUint64(&a.violations)
}
