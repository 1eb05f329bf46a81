package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// BorrowCounter tracks successful borrow operations.
	BorrowCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booksphere_borrow_total",
		Help: "Total number of successful borrow operations",
	})
	// ReturnCounter tracks successful return operations.
	ReturnCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booksphere_return_total",
		Help: "Total number of successful return operations",
	})
	// FailedOpCounter tracks operations that ended in a business failure.
	FailedOpCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booksphere_failed_ops_total",
		Help: "Total number of failed inventory operations",
	})
	// ContentionCounter tracks lock acquisitions that timed out.
	ContentionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booksphere_lock_contention_total",
		Help: "Total number of lock acquisitions that timed out",
	})
	// QueueDepthGauge reports the number of reservation requests waiting in
	// the hand-off channel.
	QueueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "booksphere_reservation_channel_depth",
		Help: "Current depth of the reservation hand-off channel",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers the core collectors on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(BorrowCounter, ReturnCounter, FailedOpCounter, ContentionCounter, QueueDepthGauge)
}
