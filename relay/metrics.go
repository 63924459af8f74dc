package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	// EventsAccepted counts events that passed the full admission
	// pipeline, labeled by kind.
	EventsAccepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_events_accepted_total",
		Help: "Number of events that passed admission and were broadcast",
	}, []string{"kind"})

	// EventsRejected counts admission failures, labeled by the
	// error-kind taxonomy of spec.md §7.
	EventsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_events_rejected_total",
		Help: "Number of events rejected during admission",
	}, []string{"reason_kind"})

	// BroadcastFanout records how many subscribers an accepted event
	// was delivered to.
	BroadcastFanout = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_broadcast_fanout",
		Help:    "Number of subscribers an accepted event was delivered to",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	})

	// ActiveSubscriptions tracks the current number of open
	// subscriptions across all connections.
	ActiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_active_subscriptions",
		Help: "Current number of open subscriptions",
	})
)

// RegisterMetrics registers every collector above with reg. Call once
// at startup with a dedicated registry, mirroring the
// per-concern-registry pattern used elsewhere in the pack.
func RegisterMetrics(reg *prometheus.Registry) {
	reg.MustRegister(EventsAccepted, EventsRejected, BroadcastFanout, ActiveSubscriptions)
}
