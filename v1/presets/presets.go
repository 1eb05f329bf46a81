package presets

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sarmadarshad321/booksphere/v1/audit"
	"github.com/sarmadarshad321/booksphere/v1/catalog"
	"github.com/sarmadarshad321/booksphere/v1/inventory"
	"github.com/sarmadarshad321/booksphere/v1/metrics"
	"github.com/sarmadarshad321/booksphere/v1/notify"
	"github.com/sarmadarshad321/booksphere/v1/recommend"
	"github.com/sarmadarshad321/booksphere/v1/reservation"
	"github.com/sarmadarshad321/booksphere/v1/scorecache"
	"github.com/sarmadarshad321/booksphere/v1/store"
)

// Core bundles the three coordination services. They are constructed once at
// process start and passed by reference to whatever consumes them; there is
// no implicit global lookup.
type Core struct {
	Inventory       *inventory.Coordinator
	Reservations    *reservation.Manager
	Recommendations *recommend.Orchestrator
	Notifier        notify.Notifier
	Titles          store.TitleStore
	Auditor         *audit.Auditor

	counters *metrics.Counters
}

func assemble(titleStore store.TitleStore, reservationStore store.ReservationStore,
	cache scorecache.Cache[[]catalog.Title], notifier notify.Notifier,
	history recommend.HistorySource) *Core {

	counters := metrics.NewCounters()
	inv := inventory.New(titleStore, inventory.WithCounters(counters))
	res := reservation.NewManager(reservation.WithStore(reservationStore))
	rec := recommend.New(
		recommend.StoreTitleSource{Store: titleStore},
		cache,
		recommend.WithCounters(counters),
		recommend.WithNotifier(notifier),
		recommend.WithHistory(history),
	)
	rec.RegisterDefaults(history)

	return &Core{
		Inventory:       inv,
		Reservations:    res,
		Recommendations: rec,
		Notifier:        notifier,
		Titles:          titleStore,
		Auditor:         audit.New(titleStore, audit.ModeObserve, time.Minute),
		counters:        counters,
	}
}

// NewInMemoryStandalone wires a Core that runs entirely in-process with no
// external dependencies. Useful for local development and tests.
func NewInMemoryStandalone(history recommend.HistorySource) *Core {
	s := store.NewInMemory()
	cache := scorecache.NewInMemory[[]catalog.Title]()
	return assemble(s, s, cache, notify.NewInMemory(), history)
}

// RedisOptions configures the connection to Redis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisBacked wires a Core whose title records and score cache live in
// Redis. Reservation records stay in-process; pair with NewGormBacked when
// they must survive restarts.
func NewRedisBacked(opts RedisOptions, history recommend.HistorySource) *Core {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	titleStore := store.NewRedisTitleStore(client)
	cache := scorecache.NewRedis[[]catalog.Title](client, nil)
	return assemble(titleStore, nil, cache, notify.NewInMemory(), history)
}

// NewGormBacked wires a Core whose title and reservation records are persisted
// through the provided GORM connection.
func NewGormBacked(db *gorm.DB, history recommend.HistorySource) *Core {
	s := store.NewGormStore(db)
	cache := scorecache.NewInMemory[[]catalog.Title]()
	return assemble(s, s, cache, notify.NewInMemory(), history)
}

// Start launches the reservation consumer loop and the inventory audit loop.
// It returns immediately; both loops stop when ctx is cancelled.
func (c *Core) Start(ctx context.Context) {
	go c.Reservations.Run(ctx, c.Inventory, c.Notifier)
	go c.Auditor.Run(ctx)
}

// Statistics returns a read-only snapshot of the named counters across all
// three services, for external reporting and admin tooling.
func (c *Core) Statistics() map[string]uint64 {
	out := c.counters.Snapshot()
	st := c.Reservations.Statistics()
	out["reservations_created"] = st.Created
	out["reservations_processed"] = st.Processed
	out["reservations_cancelled"] = st.Cancelled
	out["reservations_expired"] = st.Expired
	out["reservations_queued"] = uint64(st.CurrentlyQueued)
	out["reservation_channel_depth"] = uint64(st.ChannelDepth)
	return out
}
