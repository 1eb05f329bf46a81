package recommend

import (
	"context"
	"sort"
	"sync"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

// Collaborative ranks titles by how often other readers with overlapping
// histories borrowed them. The co-occurrence matrix is rebuilt from the
// history source on each Recommend and kept for Score lookups.
type Collaborative struct {
	src HistorySource

	mu      sync.RWMutex
	cooc    map[string]map[string]int
	maxCooc int
}

// NewCollaborative returns a collaborative strategy reading borrow histories
// from src.
func NewCollaborative(src HistorySource) *Collaborative {
	return &Collaborative{src: src, cooc: make(map[string]map[string]int)}
}

// Name implements Strategy.Name.
func (c *Collaborative) Name() string { return "collaborative" }

// Score implements Strategy.Score using the normalized co-borrow count of the
// two titles. Before the first Recommend the matrix is empty and every pair
// scores zero.
func (c *Collaborative) Score(a, b catalog.Title) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.maxCooc == 0 {
		return 0
	}
	return clamp01(float64(c.cooc[a.ID][b.ID]) / float64(c.maxCooc))
}

func (c *Collaborative) rebuild(histories map[string][]string) {
	cooc := make(map[string]map[string]int)
	max := 0
	for _, titles := range histories {
		for i := 0; i < len(titles); i++ {
			for j := 0; j < len(titles); j++ {
				if i == j {
					continue
				}
				m := cooc[titles[i]]
				if m == nil {
					m = make(map[string]int)
					cooc[titles[i]] = m
				}
				m[titles[j]]++
				if m[titles[j]] > max {
					max = m[titles[j]]
				}
			}
		}
	}
	c.mu.Lock()
	c.cooc = cooc
	c.maxCooc = max
	c.mu.Unlock()
}

// Recommend implements Strategy.Recommend.
func (c *Collaborative) Recommend(ctx context.Context, user catalog.User, available []catalog.Title) ([]catalog.Title, error) {
	histories, err := c.src.BorrowHistories(ctx)
	if err != nil {
		return nil, err
	}
	c.rebuild(histories)

	mine := toSet(user.BorrowedTitles)
	tally := make(map[string]int)
	for otherID, titles := range histories {
		if otherID == user.ID {
			continue
		}
		shared := false
		for _, id := range titles {
			if _, ok := mine[id]; ok {
				shared = true
				break
			}
		}
		if !shared {
			continue
		}
		for _, id := range titles {
			if _, ok := mine[id]; ok {
				continue
			}
			tally[id]++
		}
	}

	type scored struct {
		title catalog.Title
		count int
	}
	var out []scored
	for _, t := range available {
		if n := tally[t.ID]; n > 0 {
			out = append(out, scored{title: t, count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].title.ID < out[j].title.ID
	})
	recs := make([]catalog.Title, 0, len(out))
	for _, s := range out {
		recs = append(recs, s.title)
	}
	return recs, nil
}

// Confidence implements Strategy.Confidence: more borrow history means more
// neighbors to lean on.
func (c *Collaborative) Confidence(user catalog.User, recs []catalog.Title) float64 {
	if len(recs) == 0 {
		return 0
	}
	return clamp01(float64(len(user.BorrowedTitles)) / 5.0)
}
