package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// Registry holds all Prometheus metrics for the service on its own registry
type Registry struct {
	reg *prometheus.Registry

	// Inbound webhook metrics
	WebhookRequests *prometheus.CounterVec
	WebhookDuration *prometheus.HistogramVec

	// Issue reconciliation outcomes
	ReconcileOutcomes *prometheus.CounterVec

	// Ledger poll metrics
	PollCycles            *prometheus.CounterVec
	PollDuration          prometheus.Histogram
	CursorCommits         *prometheus.CounterVec
	TransactionsForwarded prometheus.Counter

	// Transaction transformer metrics
	TasksCreated  *prometheus.CounterVec
	DedupSkipped  prometheus.Counter
	TransformRuns *prometheus.CounterVec
}

// New creates a registry with every metric registered
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		WebhookRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskbridge_webhook_requests_total",
				Help: "Inbound webhook requests by route and status code",
			},
			[]string{"route", "status"},
		),

		WebhookDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskbridge_webhook_duration_seconds",
				Help:    "Inbound webhook handling time in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),

		ReconcileOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskbridge_reconcile_outcomes_total",
				Help: "Issue reconciliation outcomes (created, updated, closed, skipped_*)",
			},
			[]string{"outcome"},
		),

		PollCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskbridge_poll_cycles_total",
				Help: "Ledger poll cycles by result",
			},
			[]string{"result"},
		),

		PollDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "taskbridge_poll_duration_seconds",
				Help:    "Duration of a ledger poll cycle in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		CursorCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskbridge_cursor_commits_total",
				Help: "Ledger cursors written after successful delivery",
			},
			[]string{"ledger"},
		),

		TransactionsForwarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taskbridge_transactions_forwarded_total",
				Help: "Transactions delivered to the downstream webhook",
			},
		),

		TasksCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskbridge_tasks_created_total",
				Help: "Tasks created in the task manager by source",
			},
			[]string{"source"},
		),

		DedupSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taskbridge_dedup_skipped_total",
				Help: "Transactions skipped because a task was already created for them",
			},
		),

		TransformRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskbridge_transform_runs_total",
				Help: "Downstream transform invocations by result",
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		r.WebhookRequests,
		r.WebhookDuration,
		r.ReconcileOutcomes,
		r.PollCycles,
		r.PollDuration,
		r.CursorCommits,
		r.TransactionsForwarded,
		r.TasksCreated,
		r.DedupSkipped,
		r.TransformRuns,
	)

	return r
}

// Handler serves the exposition format for this registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveWebhook records one handled webhook request
func (r *Registry) ObserveWebhook(route, status string, elapsed time.Duration) {
	r.WebhookRequests.WithLabelValues(route, status).Inc()
	r.WebhookDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordReconcile records a reconciliation outcome
func (r *Registry) RecordReconcile(outcome string) {
	r.ReconcileOutcomes.WithLabelValues(outcome).Inc()
	log.Debug().Str("outcome", outcome).Msg("Reconcile outcome recorded")
}

// RecordPoll records one poll cycle
func (r *Registry) RecordPoll(result string, elapsed time.Duration) {
	r.PollCycles.WithLabelValues(result).Inc()
	r.PollDuration.Observe(elapsed.Seconds())
}

// CounterValue reads the current value of a counter, 0 when it cannot be read
func CounterValue(c prometheus.Counter) float64 {
	m := &io_prometheus_client.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// Summary is a snapshot of headline counters for the health endpoint
type Summary struct {
	PollsSucceeded        float64 `json:"polls_succeeded"`
	PollsFailed           float64 `json:"polls_failed"`
	TransactionsForwarded float64 `json:"transactions_forwarded"`
	LedgerTasksCreated    float64 `json:"ledger_tasks_created"`
	IssueTasksCreated     float64 `json:"issue_tasks_created"`
}

// Snapshot reads the headline counters
func (r *Registry) Snapshot() Summary {
	return Summary{
		PollsSucceeded:        CounterValue(r.PollCycles.WithLabelValues("success")),
		PollsFailed:           CounterValue(r.PollCycles.WithLabelValues("failed")),
		TransactionsForwarded: CounterValue(r.TransactionsForwarded),
		LedgerTasksCreated:    CounterValue(r.TasksCreated.WithLabelValues("ledger")),
		IssueTasksCreated:     CounterValue(r.TasksCreated.WithLabelValues("issue")),
	}
}
