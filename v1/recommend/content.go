package recommend

import (
	"context"
	"sort"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

// ContentBased scores titles by genre overlap with the user's preferred
// genres, skipping titles the user has already borrowed.
type ContentBased struct{}

// NewContentBased returns the content-based strategy.
func NewContentBased() ContentBased {
	return ContentBased{}
}

// Name implements Strategy.Name.
func (ContentBased) Name() string { return "content" }

// Score implements Strategy.Score as the Jaccard similarity of the two
// titles' genre sets with a bonus for a shared author.
func (ContentBased) Score(a, b catalog.Title) float64 {
	ga, gb := toSet(a.Genres), toSet(b.Genres)
	inter := 0
	for g := range ga {
		if _, ok := gb[g]; ok {
			inter++
		}
	}
	union := len(ga) + len(gb) - inter
	score := 0.0
	if union > 0 {
		score = float64(inter) / float64(union)
	}
	if a.Author != "" && a.Author == b.Author {
		score += 0.3
	}
	return clamp01(score)
}

// Recommend implements Strategy.Recommend.
func (s ContentBased) Recommend(ctx context.Context, user catalog.User, available []catalog.Title) ([]catalog.Title, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefs := toSet(user.PreferredGenres)
	borrowed := toSet(user.BorrowedTitles)

	type scored struct {
		title catalog.Title
		score float64
	}
	var out []scored
	for _, t := range available {
		if _, ok := borrowed[t.ID]; ok {
			continue
		}
		matches := 0
		for _, g := range t.Genres {
			if _, ok := prefs[g]; ok {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		out = append(out, scored{title: t, score: float64(matches) / float64(len(t.Genres))})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].title.ID < out[j].title.ID
	})
	recs := make([]catalog.Title, 0, len(out))
	for _, s := range out {
		recs = append(recs, s.title)
	}
	return recs, nil
}

// Confidence implements Strategy.Confidence. A richer genre profile means a
// more trustworthy ranking.
func (ContentBased) Confidence(user catalog.User, recs []catalog.Title) float64 {
	if len(recs) == 0 {
		return 0
	}
	return clamp01(float64(len(user.PreferredGenres)) / 5.0)
}
