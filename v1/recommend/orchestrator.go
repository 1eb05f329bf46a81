package recommend

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
	"github.com/sarmadarshad321/booksphere/v1/metrics"
	"github.com/sarmadarshad321/booksphere/v1/notify"
	"github.com/sarmadarshad321/booksphere/v1/scorecache"
	"github.com/sarmadarshad321/booksphere/v1/store"
)

var tracer = otel.Tracer("github.com/sarmadarshad321/booksphere/v1/recommend")

// Default merge weights for the built-in strategies.
const (
	ContentWeight       = 0.40
	CollaborativeWeight = 0.35
	PopularityWeight    = 0.25
)

const (
	defaultDeadline  = 10 * time.Second
	defaultTTL       = 30 * time.Minute
	defaultWorkers   = 3
	defaultTopN      = 10
	defaultFallbackN = 10
)

// TitleSource provides the read-only snapshot of available titles every
// strategy operates over.
type TitleSource interface {
	AvailableTitles(ctx context.Context) ([]catalog.Title, error)
}

// StoreTitleSource adapts a store.TitleStore into a TitleSource, filtering
// out titles with no free copy.
type StoreTitleSource struct {
	Store store.TitleStore
}

// AvailableTitles implements TitleSource.AvailableTitles.
func (s StoreTitleSource) AvailableTitles(ctx context.Context) ([]catalog.Title, error) {
	titles, err := s.Store.ListTitles(ctx)
	if err != nil {
		return nil, err
	}
	out := titles[:0]
	for _, t := range titles {
		if t.AvailableCopies > 0 {
			out = append(out, t)
		}
	}
	return out, nil
}

type weighted struct {
	strategy Strategy
	weight   float64
}

// Orchestrator combines the outputs of several independently pluggable
// scoring strategies, bounded by a deadline, with a time-limited per-user
// result cache. A deadline overrun or a failing strategy degrades to a
// default list, never to an error.
type Orchestrator struct {
	titles     TitleSource
	cache      scorecache.Cache[[]catalog.Title]
	history    HistorySource
	notifier   notify.Notifier
	strategies []weighted

	deadline  time.Duration
	ttl       time.Duration
	workers   int
	topN      int
	fallbackN int

	counters     *metrics.Counters
	traceEnabled bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDeadline bounds the parallel strategy execution.
func WithDeadline(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.deadline = d }
}

// WithTTL sets the cache time-to-live for computed results.
func WithTTL(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.ttl = d }
}

// WithWorkers bounds the number of strategies running at once.
func WithWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithTopN sets how many titles a merged result keeps.
func WithTopN(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.topN = n
		}
	}
}

// WithHistory provides borrow histories for the co-occurrence query.
func WithHistory(src HistorySource) OrchestratorOption {
	return func(o *Orchestrator) { o.history = src }
}

// WithNotifier publishes a degradation event whenever a fallback list is
// served instead of computed recommendations.
func WithNotifier(n notify.Notifier) OrchestratorOption {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithCounters shares a Counters set for cache hit/miss accounting.
func WithCounters(cs *metrics.Counters) OrchestratorOption {
	return func(o *Orchestrator) { o.counters = cs }
}

// WithTracing enables OpenTelemetry spans on GetRecommendations.
func WithTracing() OrchestratorOption {
	return func(o *Orchestrator) { o.traceEnabled = true }
}

// New returns an Orchestrator with no strategies registered. Use Register or
// RegisterDefaults before asking for recommendations.
func New(titles TitleSource, cache scorecache.Cache[[]catalog.Title], opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		titles:    titles,
		cache:     cache,
		deadline:  defaultDeadline,
		ttl:       defaultTTL,
		workers:   defaultWorkers,
		topN:      defaultTopN,
		fallbackN: defaultFallbackN,
		counters:  metrics.NewCounters(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register adds a strategy with the given merge weight. New strategies plug
// in without any orchestrator changes.
func (o *Orchestrator) Register(s Strategy, weight float64) {
	o.strategies = append(o.strategies, weighted{strategy: s, weight: weight})
}

// RegisterDefaults wires the three built-in strategies with their standard
// weights. history may be nil, in which case the collaborative strategy is
// skipped.
func (o *Orchestrator) RegisterDefaults(history HistorySource) {
	o.Register(NewContentBased(), ContentWeight)
	if history != nil {
		o.Register(NewCollaborative(history), CollaborativeWeight)
		if o.history == nil {
			o.history = history
		}
	}
	o.Register(NewPopularity(), PopularityWeight)
}

// GetRecommendations returns the cached ranked list for the user if a live
// entry exists, otherwise computes, caches and returns a fresh one.
func (o *Orchestrator) GetRecommendations(ctx context.Context, user catalog.User) ([]catalog.Title, error) {
	var span trace.Span
	if o.traceEnabled {
		ctx, span = tracer.Start(ctx, "Recommend.GetRecommendations")
		defer span.End()
		span.SetAttributes(attribute.String("booksphere.user_id", user.ID))
	}

	if cached, ok, err := o.cache.Get(ctx, user.ID); err == nil && ok {
		o.counters.IncCacheHit()
		if o.traceEnabled {
			span.SetAttributes(attribute.String("booksphere.cache", "hit"))
		}
		return cached, nil
	}
	o.counters.IncCacheMiss()
	if o.traceEnabled {
		span.SetAttributes(attribute.String("booksphere.cache", "miss"))
	}

	available, err := o.titles.AvailableTitles(ctx)
	if err != nil {
		return nil, err
	}
	recs := o.Compute(ctx, user, available)
	if err := o.cache.Set(ctx, user.ID, recs, o.ttl); err != nil {
		slog.Warn("booksphere: recommendation cache write failed", "user_id", user.ID, "error", err)
	}
	return recs, nil
}

// Compute dispatches every registered strategy concurrently over the shared
// snapshot, waits for all of them up to the deadline and merges their output.
// A strategy error is isolated and logged; a deadline overrun degrades to the
// fallback list. A stalled strategy that ignores its context is abandoned,
// not waited for.
func (o *Orchestrator) Compute(ctx context.Context, user catalog.User, available []catalog.Title) []catalog.Title {
	if len(o.strategies) == 0 {
		return o.fallback(available)
	}

	cctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	g, gctx := errgroup.WithContext(cctx)
	g.SetLimit(o.workers)
	results := make([][]catalog.Title, len(o.strategies))
	for i, ws := range o.strategies {
		i, ws := i, ws
		g.Go(func() error {
			recs, err := ws.strategy.Recommend(gctx, user, available)
			if err != nil {
				slog.Warn("booksphere: strategy failed",
					"strategy", ws.strategy.Name(), "user_id", user.ID, "error", err)
				return nil
			}
			results[i] = recs
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-cctx.Done():
		slog.Warn("booksphere: recommendation deadline exceeded", "user_id", user.ID)
		o.degraded(ctx, user)
		return o.fallback(available)
	}

	for i, ws := range o.strategies {
		if conf := ws.strategy.Confidence(user, results[i]); conf < 0.2 {
			slog.Debug("booksphere: low strategy confidence",
				"strategy", ws.strategy.Name(), "user_id", user.ID, "confidence", conf)
		}
	}

	merged := o.merge(results)
	if len(merged) == 0 {
		return o.fallback(available)
	}
	return merged
}

// merge sums rank-based weighted scores per title across strategies: a title
// at index i of a list of length n contributes (n-i)*weight.
func (o *Orchestrator) merge(results [][]catalog.Title) []catalog.Title {
	scores := make(map[string]float64)
	byID := make(map[string]catalog.Title)
	for i, list := range results {
		w := o.strategies[i].weight
		n := len(list)
		for idx, t := range list {
			scores[t.ID] += float64(n-idx) * w
			byID[t.ID] = t
		}
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > o.topN {
		ids = ids[:o.topN]
	}
	out := make([]catalog.Title, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// fallback is the degraded result: the first N available titles.
func (o *Orchestrator) fallback(available []catalog.Title) []catalog.Title {
	n := o.fallbackN
	if n > len(available) {
		n = len(available)
	}
	out := make([]catalog.Title, n)
	copy(out, available[:n])
	return out
}

func (o *Orchestrator) degraded(ctx context.Context, user catalog.User) {
	if o.notifier == nil {
		return
	}
	ev := notify.NewEvent(notify.KindRecommendationDegraded, user.ID, "")
	if err := o.notifier.Publish(ctx, ev); err != nil {
		slog.Warn("booksphere: degradation notification failed", "user_id", user.ID, "error", err)
	}
}

// AlsoRecommendedWith returns titles commonly borrowed together with the
// given title, independent of the per-user cache. Without a history source
// it falls back to averaging the registered strategies' pairwise scores.
func (o *Orchestrator) AlsoRecommendedWith(ctx context.Context, title catalog.Title) ([]catalog.Title, error) {
	available, err := o.titles.AvailableTitles(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		title catalog.Title
		score float64
	}
	var out []scored

	if o.history != nil {
		histories, err := o.history.BorrowHistories(ctx)
		if err != nil {
			return nil, err
		}
		tally := make(map[string]int)
		for _, titles := range histories {
			has := false
			for _, id := range titles {
				if id == title.ID {
					has = true
					break
				}
			}
			if !has {
				continue
			}
			for _, id := range titles {
				if id != title.ID {
					tally[id]++
				}
			}
		}
		for _, t := range available {
			if n := tally[t.ID]; n > 0 {
				out = append(out, scored{title: t, score: float64(n)})
			}
		}
	} else {
		for _, t := range available {
			if t.ID == title.ID {
				continue
			}
			sum := 0.0
			for _, ws := range o.strategies {
				sum += ws.strategy.Score(title, t)
			}
			if len(o.strategies) > 0 {
				sum /= float64(len(o.strategies))
			}
			if sum > 0 {
				out = append(out, scored{title: t, score: sum})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].title.ID < out[j].title.ID
	})
	if len(out) > o.topN {
		out = out[:o.topN]
	}
	recs := make([]catalog.Title, 0, len(out))
	for _, s := range out {
		recs = append(recs, s.title)
	}
	return recs, nil
}

// Invalidate drops the user's cached result, independent of TTL.
func (o *Orchestrator) Invalidate(ctx context.Context, userID string) error {
	return o.cache.Invalidate(ctx, userID)
}

// ClearAll drops every cached result.
func (o *Orchestrator) ClearAll(ctx context.Context) error {
	return o.cache.Clear(ctx)
}

// Counters returns a snapshot of the orchestrator's named counters.
func (o *Orchestrator) Counters() map[string]uint64 {
	return o.counters.Snapshot()
}
