package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
	"github.com/sarmadarshad321/booksphere/v1/metrics"
	"github.com/sarmadarshad321/booksphere/v1/store"
)

func TestAddPositionsContiguous(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	ids := make([]int64, 0, 3)
	for _, u := range []string{"A", "B", "C"} {
		id, err := m.Add(ctx, u, "t1")
		if err != nil {
			t.Fatalf("add %s: %v", u, err)
		}
		ids = append(ids, id)
	}
	if !(ids[0] < ids[1] && ids[1] < ids[2]) {
		t.Fatalf("request ids not monotonic: %v", ids)
	}

	for i, u := range []string{"A", "B", "C"} {
		pos, ok := m.Position("t1", u)
		if !ok || pos != i+1 {
			t.Fatalf("position of %s = %d ok %v", u, pos, ok)
		}
	}
}

func TestCancelRenumbers(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	for _, u := range []string{"A", "B", "C"} {
		_, _ = m.Add(ctx, u, "t1")
	}

	removed, err := m.Cancel(ctx, "t1", "B")
	if err != nil || !removed {
		t.Fatalf("cancel: removed %v err %v", removed, err)
	}

	if pos, ok := m.Position("t1", "A"); !ok || pos != 1 {
		t.Fatalf("A position = %d ok %v", pos, ok)
	}
	if pos, ok := m.Position("t1", "C"); !ok || pos != 2 {
		t.Fatalf("C position = %d ok %v", pos, ok)
	}
	if _, ok := m.Position("t1", "B"); ok {
		t.Fatal("B should be gone")
	}
}

func TestCancelIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	_, _ = m.Add(ctx, "A", "t1")

	if removed, _ := m.Cancel(ctx, "t1", "nobody"); removed {
		t.Fatal("expected false for unknown user")
	}
	if removed, _ := m.Cancel(ctx, "t1", "A"); !removed {
		t.Fatal("expected first cancel to remove")
	}
	if removed, _ := m.Cancel(ctx, "t1", "A"); removed {
		t.Fatal("expected second cancel to be a no-op")
	}
	if pos, ok := m.Position("t1", "A"); ok {
		t.Fatalf("unexpected live entry at %d", pos)
	}
}

func TestProcessNextFIFO(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	for _, u := range []string{"A", "B", "C"} {
		_, _ = m.Add(ctx, u, "t1")
	}

	for _, want := range []string{"A", "B", "C"} {
		e, ok, err := m.ProcessNext(ctx, "t1")
		if err != nil || !ok {
			t.Fatalf("process: ok %v err %v", ok, err)
		}
		if e.UserID != want {
			t.Fatalf("expected %s, got %s", want, e.UserID)
		}
	}

	if _, ok, _ := m.ProcessNext(ctx, "t1"); ok {
		t.Fatal("expected empty result on drained queue")
	}
}

func TestContiguityUnderConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	var wg sync.WaitGroup
	users := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, _ = m.Add(ctx, u, "t1")
		}(u)
	}
	wg.Wait()

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = m.ProcessNext(ctx, "t1")
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = m.Cancel(ctx, "t1", "u4")
	}()
	wg.Wait()

	// Whatever interleaving happened, live positions must be exactly 1..N.
	q := m.queueFor("t1")
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.Position != i+1 {
			t.Fatalf("gap at index %d: position %d", i, e.Position)
		}
	}
}

func TestExpireOlderThan(t *testing.T) {
	ctx := context.Background()
	m := NewManager()
	_, _ = m.Add(ctx, "A", "t1")
	_, _ = m.Add(ctx, "B", "t1")
	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	_, _ = m.Add(ctx, "C", "t1")

	removed, err := m.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if pos, ok := m.Position("t1", "C"); !ok || pos != 1 {
		t.Fatalf("C position = %d ok %v", pos, ok)
	}
}

func TestSubmitPoll(t *testing.T) {
	ctx := context.Background()
	m := NewManager(WithChannelCapacity(2))

	req := catalog.ReservationRequest{UserID: "u1", TitleID: "t1"}
	if err := m.Submit(ctx, req); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, ok := m.Poll(100 * time.Millisecond)
	if !ok || got.UserID != "u1" || got.SubmittedAt.IsZero() {
		t.Fatalf("poll: ok %v got %+v", ok, got)
	}

	start := time.Now()
	if _, ok := m.Poll(20 * time.Millisecond); ok {
		t.Fatal("expected empty poll")
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Fatal("poll blocked past its timeout")
	}
}

func TestSubmitBlocksWhenFull(t *testing.T) {
	m := NewManager(WithChannelCapacity(1))
	ctx := context.Background()

	if err := m.Submit(ctx, catalog.ReservationRequest{UserID: "u1", TitleID: "t1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := m.Submit(cctx, catalog.ReservationRequest{UserID: "u2", TitleID: "t1"}); err == nil {
		t.Fatal("expected blocked submit to fail on context timeout")
	}
}

func TestStatisticsAndWriteThrough(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()
	m := NewManager(WithStore(s))

	_, _ = m.Add(ctx, "A", "t1")
	_, _ = m.Add(ctx, "B", "t1")
	if s.ReservationCount() != 2 {
		t.Fatalf("expected 2 durable records, got %d", s.ReservationCount())
	}

	_, _, _ = m.ProcessNext(ctx, "t1")
	_, _ = m.Cancel(ctx, "t1", "B")
	if s.ReservationCount() != 0 {
		t.Fatalf("expected durable records cleaned up, got %d", s.ReservationCount())
	}

	_ = m.Submit(ctx, catalog.ReservationRequest{UserID: "C", TitleID: "t2"})
	st := m.Statistics()
	if st.Created != 2 || st.Processed != 1 || st.Cancelled != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.CurrentlyQueued != 0 || st.ChannelDepth != 1 {
		t.Fatalf("unexpected depths %+v", st)
	}
}

type brokenDeleteStore struct{}

func (brokenDeleteStore) SaveReservation(ctx context.Context, r catalog.QueuedReservation) error {
	return nil
}

func (brokenDeleteStore) DeleteReservation(ctx context.Context, requestID int64) error {
	return errors.New("store offline")
}

func TestExpireKeepsQueueOnStoreError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(WithStore(brokenDeleteStore{}))
	_, _ = m.Add(ctx, "A", "t1")
	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	_, _ = m.Add(ctx, "B", "t1")
	_, _ = m.Add(ctx, "C", "t1")

	removed, err := m.ExpireOlderThan(ctx, cutoff)
	if err == nil {
		t.Fatalf("expected delete error")
	}
	if removed != 0 {
		t.Fatalf("expected 0 removed, got %d", removed)
	}
	for i, user := range []string{"A", "B", "C"} {
		pos, ok := m.Position("t1", user)
		if !ok || pos != i+1 {
			t.Fatalf("%s position = %d ok %v, want %d", user, pos, ok, i+1)
		}
	}
	if st := m.Statistics(); st.Expired != 0 || st.CurrentlyQueued != 3 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestWithMetricsSharesCoreGauge(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("register panicked: %v", r)
		}
	}()
	reg := metrics.NewRegistry()
	metrics.RegisterCoreMetrics(reg)
	m := NewManager(WithChannelCapacity(2), WithMetrics(reg))

	if err := m.Submit(context.Background(), catalog.ReservationRequest{UserID: "u1", TitleID: "t1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := testutil.ToFloat64(metrics.QueueDepthGauge); got != 1 {
		t.Fatalf("expected gauge depth 1, got %v", got)
	}
	_, _ = m.Poll(100 * time.Millisecond)
	if got := testutil.ToFloat64(metrics.QueueDepthGauge); got != 0 {
		t.Fatalf("expected gauge depth 0, got %v", got)
	}
}
