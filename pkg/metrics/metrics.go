package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for sponsored user operations submitted through the bundler.
var (
	UserOpsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "magnifylend_user_operations_submitted_total",
		Help: "Sponsored user operations submitted to the bundler, by operation.",
	}, []string{"operation"})

	UserOpsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "magnifylend_user_operations_failed_total",
		Help: "User operations that failed during estimation, submission or receipt wait.",
	}, []string{"operation"})

	WebhookUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "magnifylend_telegram_updates_total",
		Help: "Telegram webhook updates accepted for processing.",
	})
)
