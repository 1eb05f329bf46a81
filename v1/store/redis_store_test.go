package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

func newRedisStore(t *testing.T) *RedisTitleStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisTitleStore(client)
}

func TestRedisTitleStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t)

	title := catalog.Title{
		ID:              "t1",
		Name:            "Foundation",
		Author:          "Asimov",
		Genres:          []string{"sci-fi"},
		TotalCopies:     5,
		AvailableCopies: 2,
	}
	if err := s.SaveTitle(ctx, title); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.GetTitle(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("get: ok %v err %v", ok, err)
	}
	if got.Author != "Asimov" || got.AvailableCopies != 2 {
		t.Fatalf("unexpected title %+v", got)
	}

	if _, ok, _ := s.GetTitle(ctx, "missing"); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestRedisTitleStoreList(t *testing.T) {
	ctx := context.Background()
	s := newRedisStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.SaveTitle(ctx, catalog.Title{ID: id, TotalCopies: 1, AvailableCopies: 1}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	all, err := s.ListTitles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 titles, got %d", len(all))
	}
}
