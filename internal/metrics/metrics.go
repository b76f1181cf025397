package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabhunts",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	monitorRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabhunts",
			Name:      "monitor_runs_total",
			Help:      "Monitor invocations by monitor name and outcome.",
		},
		[]string{"monitor", "outcome"},
	)

	monitorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "collabhunts",
			Name:      "monitor_run_duration_seconds",
			Help:      "Wall time of one monitor run.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"monitor"},
	)

	autoReleases = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "collabhunts",
			Name:      "bookings_auto_released_total",
			Help:      "Bookings finalized by the auto-release monitor.",
		},
	)

	disputeEscalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "collabhunts",
			Name:      "dispute_escalations_total",
			Help:      "Disputes escalated to admin review.",
		},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "collabhunts",
			Name:      "reminders_sent_total",
			Help:      "Reminder notifications drafted, by kind.",
		},
		[]string{"kind"},
	)

	notificationsInserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "collabhunts",
			Name:      "notifications_inserted_total",
			Help:      "Notification rows written.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			monitorRuns,
			monitorDuration,
			autoReleases,
			disputeEscalations,
			remindersSent,
			notificationsInserted,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// ObserveRun records one monitor run.
func ObserveRun(monitor, outcome string, elapsed time.Duration) {
	monitorRuns.WithLabelValues(monitor, outcome).Inc()
	monitorDuration.WithLabelValues(monitor).Observe(elapsed.Seconds())
}

func IncAutoReleased() {
	autoReleases.Inc()
}

func IncDisputeEscalated() {
	disputeEscalations.Inc()
}

// IncReminder counts a drafted reminder by kind, e.g. "review_24h_left",
// "dispute_day2".
func IncReminder(kind string) {
	remindersSent.WithLabelValues(kind).Inc()
}

func AddNotificationsInserted(count int) {
	notificationsInserted.Add(float64(count))
}
