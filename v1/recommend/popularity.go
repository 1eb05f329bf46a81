package recommend

import (
	"context"
	"math"
	"sort"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

// Popularity ranks titles by current demand: the fraction of copies out. It
// needs no per-user signal, so it is the workhorse for cold-start users.
type Popularity struct{}

// NewPopularity returns the popularity-based strategy.
func NewPopularity() Popularity {
	return Popularity{}
}

// Name implements Strategy.Name.
func (Popularity) Name() string { return "popularity" }

// Score implements Strategy.Score: titles with similar demand profiles score
// close to 1.
func (Popularity) Score(a, b catalog.Title) float64 {
	return clamp01(1 - math.Abs(a.Demand()-b.Demand()))
}

// Recommend implements Strategy.Recommend.
func (Popularity) Recommend(ctx context.Context, user catalog.User, available []catalog.Title) ([]catalog.Title, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	borrowed := toSet(user.BorrowedTitles)
	recs := make([]catalog.Title, 0, len(available))
	for _, t := range available {
		if _, ok := borrowed[t.ID]; ok {
			continue
		}
		recs = append(recs, t)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		di, dj := recs[i].Demand(), recs[j].Demand()
		if di != dj {
			return di > dj
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

// Confidence implements Strategy.Confidence: demand is only meaningful when
// some copies are actually out.
func (Popularity) Confidence(user catalog.User, recs []catalog.Title) float64 {
	if len(recs) == 0 {
		return 0
	}
	active := 0
	for _, t := range recs {
		if t.Demand() > 0 {
			active++
		}
	}
	return clamp01(float64(active) / float64(len(recs)))
}
