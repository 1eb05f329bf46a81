package recommend

import (
	"context"
	"testing"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

func TestContentScore(t *testing.T) {
	s := NewContentBased()
	a := catalog.Title{ID: "a", Author: "X", Genres: []string{"sci-fi", "classic"}}
	b := catalog.Title{ID: "b", Author: "X", Genres: []string{"sci-fi"}}
	c := catalog.Title{ID: "c", Author: "Y", Genres: []string{"romance"}}

	if got := s.Score(a, b); got <= 0.5 || got > 1 {
		t.Fatalf("expected high score for shared genre and author, got %v", got)
	}
	if got := s.Score(a, c); got != 0 {
		t.Fatalf("expected zero score for disjoint titles, got %v", got)
	}
}

func TestContentRecommend(t *testing.T) {
	ctx := context.Background()
	s := NewContentBased()
	user := catalog.User{
		ID:              "u1",
		PreferredGenres: []string{"sci-fi"},
		BorrowedTitles:  []string{"owned"},
	}
	available := []catalog.Title{
		{ID: "owned", Genres: []string{"sci-fi"}},
		{ID: "partial", Genres: []string{"sci-fi", "romance"}},
		{ID: "pure", Genres: []string{"sci-fi"}},
		{ID: "off", Genres: []string{"cooking"}},
	}

	recs, err := s.Recommend(ctx, user, available)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].ID != "pure" || recs[1].ID != "partial" {
		t.Fatalf("unexpected order: %s, %s", recs[0].ID, recs[1].ID)
	}
}

func TestPopularityRecommend(t *testing.T) {
	ctx := context.Background()
	s := NewPopularity()
	available := []catalog.Title{
		{ID: "cold", TotalCopies: 4, AvailableCopies: 4},
		{ID: "hot", TotalCopies: 4, AvailableCopies: 1},
		{ID: "warm", TotalCopies: 4, AvailableCopies: 3},
	}

	recs, err := s.Recommend(ctx, catalog.User{ID: "u1"}, available)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	want := []string{"hot", "warm", "cold"}
	for i, id := range want {
		if recs[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, recs[i].ID)
		}
	}
}

type fakeHistory map[string][]string

func (f fakeHistory) BorrowHistories(ctx context.Context) (map[string][]string, error) {
	return f, nil
}

func TestCollaborativeRecommend(t *testing.T) {
	ctx := context.Background()
	hist := fakeHistory{
		"me":    {"t1"},
		"peer1": {"t1", "t2", "t3"},
		"peer2": {"t1", "t2"},
		"loner": {"t9"},
	}
	s := NewCollaborative(hist)

	available := []catalog.Title{{ID: "t2"}, {ID: "t3"}, {ID: "t9"}}
	user := catalog.User{ID: "me", BorrowedTitles: []string{"t1"}}

	recs, err := s.Recommend(ctx, user, available)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	// t2 is shared by two peers, t3 by one; t9 has no overlap with me.
	if recs[0].ID != "t2" || recs[1].ID != "t3" {
		t.Fatalf("unexpected order: %s, %s", recs[0].ID, recs[1].ID)
	}

	// the rebuilt co-occurrence matrix backs Score
	if got := s.Score(catalog.Title{ID: "t1"}, catalog.Title{ID: "t2"}); got == 0 {
		t.Fatal("expected non-zero co-occurrence score for t1/t2")
	}
	if got := s.Score(catalog.Title{ID: "t1"}, catalog.Title{ID: "t9"}); got != 0 {
		t.Fatalf("expected zero score for unrelated titles, got %v", got)
	}
}
