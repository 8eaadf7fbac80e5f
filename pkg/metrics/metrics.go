package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Database query latency in seconds.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// Task mutation counts by kind.
	TaskMutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_mutation_count",
			Help: "Total number of task mutations applied",
		},
		[]string{"kind"}, // kind: create, update, timer_start, timer_stop, timer_heartbeat
	)

	// XP granted through status-completion awards and achievement bonuses.
	XPAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP awarded to users",
		},
		[]string{"source"}, // source: completion, achievement
	)

	// Achievement unlock counts by achievement id.
	AchievementUnlockCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "achievement_unlock_count",
			Help: "Total number of achievements unlocked",
		},
		[]string{"achievement"},
	)

	// Notification publish outcomes.
	NotificationPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_publish_count",
			Help: "Total number of notification publish attempts",
		},
		[]string{"status"}, // status: success, failed, breaker_open
	)
)

// RecordHTTPRequestDuration records one HTTP request observation.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQueryDuration records one database query observation.
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementTaskMutation counts one applied task mutation.
func IncrementTaskMutation(kind string) {
	TaskMutationCount.WithLabelValues(kind).Inc()
}

// AddXPAwarded counts XP granted from the given source.
func AddXPAwarded(source string, amount int) {
	XPAwardedTotal.WithLabelValues(source).Add(float64(amount))
}

// IncrementAchievementUnlock counts one achievement unlock.
func IncrementAchievementUnlock(achievementID string) {
	AchievementUnlockCount.WithLabelValues(achievementID).Inc()
}

// IncrementNotificationPublish counts one notification publish attempt.
func IncrementNotificationPublish(status string) {
	NotificationPublishCount.WithLabelValues(status).Inc()
}
