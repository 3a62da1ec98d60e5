// Package http holds the JSON response contracts served by the webhook API.
package http

import (
	"time"

	"github.com/sawpanic/taskbridge/internal/metrics"
	"github.com/sawpanic/taskbridge/internal/persistence"
)

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookResponse acknowledges a processed webhook delivery
type WebhookResponse struct {
	Status    string `json:"status"`
	Outcome   string `json:"outcome,omitempty"`
	RequestID string `json:"request_id"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                   `json:"status"` // healthy, degraded, unhealthy
	Timestamp time.Time                `json:"timestamp"`
	Uptime    string                   `json:"uptime"`
	Version   string                   `json:"version"`
	System    SystemInfo               `json:"system"`
	Store     persistence.HealthCheck  `json:"store"`
	Circuits  map[string]CircuitHealth `json:"circuits"`
	Poller    *PollerHealth            `json:"poller,omitempty"`
	Counters  metrics.Summary          `json:"counters"`
}

// SystemInfo provides process-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
}

// CircuitHealth reports one outbound breaker
type CircuitHealth struct {
	Name  string `json:"name"`
	State string `json:"state"` // closed, open, half-open
}

// PollerHealth summarizes the scheduled ledger poll
type PollerHealth struct {
	Running     bool       `json:"running"`
	Interval    string     `json:"interval"`
	Runs        int64      `json:"runs"`
	Failures    int64      `json:"failures"`
	Skipped     int64      `json:"skipped"`
	LastSuccess *bool      `json:"last_success,omitempty"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}
