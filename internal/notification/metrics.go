package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PushAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ami_push_attempts_total",
			Help: "Push delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ami_dispatch_duration_seconds",
			Help:    "Time spent fanning a notification out to its registrations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"try_push"},
	)

	ScheduledPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ami_scheduled_notifications_published_total",
			Help: "Scheduled notifications materialized by the publisher",
		},
	)

	ScheduledClaimSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ami_scheduled_notifications_claim_skipped_total",
			Help: "Due candidates already claimed by a concurrent publisher",
		},
	)

	ScheduledPublishFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ami_scheduled_notifications_publish_failed_total",
			Help: "Due candidates whose claim failed with a store error",
		},
	)

	ScheduledSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ami_scheduled_notifications_swept_total",
			Help: "Sent scheduled notifications deleted by the retention sweeper",
		},
	)
)
