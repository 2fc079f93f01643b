package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Retry outcomes for RetryJobs.
const (
	OutcomeCompleted    = "completed"
	OutcomeRequeued     = "requeued"
	OutcomeDeadLettered = "dead_lettered"
)

var (
	// EventsReceived counts verified webhook events by kind, including kinds
	// that are acknowledged and dropped.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_webhook_events_total",
		Help: "Verified webhook events received, by event kind.",
	}, []string{"type"})

	// Commits counts durable-writer commits by outcome (ok/error).
	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_commits_total",
		Help: "Transaction commit attempts, by outcome.",
	}, []string{"outcome"})

	// CommitDuration observes end-to-end commit latency.
	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gatepass_commit_duration_seconds",
		Help:    "Latency of durable transaction commits.",
		Buckets: prometheus.DefBuckets,
	})

	// RetryJobs counts retry-queue job completions by outcome. This is the
	// only place internal processing failures become externally visible.
	RetryJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatepass_retry_jobs_total",
		Help: "Retry queue jobs processed, by outcome.",
	}, []string{"outcome"})
)
