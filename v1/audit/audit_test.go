package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
	"github.com/sarmadarshad321/booksphere/v1/store"
)

func TestScanRepairsOutOfRangeCounts(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	_ = s.SaveTitle(ctx, catalog.Title{ID: "over", TotalCopies: 2, AvailableCopies: 5})
	_ = s.SaveTitle(ctx, catalog.Title{ID: "under", TotalCopies: 2, AvailableCopies: -1})
	_ = s.SaveTitle(ctx, catalog.Title{ID: "ok", TotalCopies: 2, AvailableCopies: 1})

	a := New(s, ModeRepair, time.Minute)
	if found := a.Scan(ctx); found != 2 {
		t.Fatalf("expected 2 violations, got %d", found)
	}
	over, _, _ := s.GetTitle(ctx, "over")
	if over.AvailableCopies != 2 {
		t.Fatalf("expected over clamped to 2, got %d", over.AvailableCopies)
	}
	under, _, _ := s.GetTitle(ctx, "under")
	if under.AvailableCopies != 0 {
		t.Fatalf("expected under clamped to 0, got %d", under.AvailableCopies)
	}
	if m := a.Metrics(); m != 2 {
		t.Fatalf("expected 2 violations recorded, got %d", m)
	}
}

func TestScanObserveLeavesRecords(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	_ = s.SaveTitle(ctx, catalog.Title{ID: "over", TotalCopies: 1, AvailableCopies: 3})

	a := New(s, ModeObserve, time.Minute)
	if found := a.Scan(ctx); found != 1 {
		t.Fatalf("expected 1 violation, got %d", found)
	}
	got, _, _ := s.GetTitle(ctx, "over")
	if got.AvailableCopies != 3 {
		t.Fatalf("expected record untouched, got %d", got.AvailableCopies)
	}
}

func TestRunLoopDetects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := store.NewInMemory()
	_ = s.SaveTitle(ctx, catalog.Title{ID: "over", TotalCopies: 1, AvailableCopies: 2})

	a := New(s, ModeRepair, time.Millisecond)
	go a.Run(ctx)
	deadline := time.Now().Add(time.Second)
	for a.Metrics() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if a.Metrics() == 0 {
		t.Fatalf("expected loop to detect violation")
	}
}

type flakyStore struct {
	store.TitleStore
	listErr error
	saveErr error
}

func (s *flakyStore) ListTitles(ctx context.Context) ([]catalog.Title, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.TitleStore.ListTitles(ctx)
}

func (s *flakyStore) SaveTitle(ctx context.Context, t catalog.Title) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.TitleStore.SaveTitle(ctx, t)
}

func TestScanSurvivesStoreErrors(t *testing.T) {
	ctx := context.Background()
	base := store.NewInMemory()
	_ = base.SaveTitle(ctx, catalog.Title{ID: "over", TotalCopies: 1, AvailableCopies: 2})

	broken := &flakyStore{TitleStore: base, listErr: errors.New("store offline")}
	a := New(broken, ModeRepair, time.Minute)
	if found := a.Scan(ctx); found != 0 {
		t.Fatalf("expected 0 violations when listing fails, got %d", found)
	}

	broken.listErr = nil
	broken.saveErr = errors.New("store read-only")
	if found := a.Scan(ctx); found != 1 {
		t.Fatalf("expected violation counted despite repair failure, got %d", found)
	}
	got, _, _ := base.GetTitle(ctx, "over")
	if got.AvailableCopies != 2 {
		t.Fatalf("expected record untouched after failed repair, got %d", got.AvailableCopies)
	}
}
