package recommend

import (
	"context"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

// Strategy is the pluggable scoring capability the orchestrator dispatches.
// Implementations must be safe for concurrent use; Recommend runs on a shared
// read-only snapshot of the available titles and must honor ctx cancellation.
type Strategy interface {
	// Score rates the affinity between two titles in [0,1].
	Score(a, b catalog.Title) float64
	// Recommend returns an ordered list of titles for the user, best first.
	Recommend(ctx context.Context, user catalog.User, available []catalog.Title) ([]catalog.Title, error)
	// Name identifies the algorithm.
	Name() string
	// Confidence rates how much the strategy trusts its own output for this
	// user, in [0,1].
	Confidence(user catalog.User, recs []catalog.Title) float64
}

// HistorySource exposes per-user borrow histories (user id to title ids) for
// the collaborative strategy and the co-occurrence query.
type HistorySource interface {
	BorrowHistories(ctx context.Context) (map[string][]string, error)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
