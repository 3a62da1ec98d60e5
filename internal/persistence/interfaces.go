package persistence

import (
	"context"
	"time"
)

// KV is the durable key-value abstraction every backend implements.
// Values are opaque strings; a zero ttl means no expiry.
type KV interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key without expiry, overwriting any previous value
	Set(ctx context.Context, key, value string) error

	// SetNX stores value only if key is absent or expired and reports whether it did
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Ping tests basic connectivity to the backend
	Ping(ctx context.Context) error
}

// HealthCheck represents store health status
type HealthCheck struct {
	Healthy        bool      `json:"healthy"`
	Driver         string    `json:"driver"`
	Errors         []string  `json:"errors,omitempty"`
	LastCheck      time.Time `json:"last_check"`
	ResponseTimeMS int64     `json:"response_time_ms"`
}

// Check pings kv and reports the outcome
func Check(ctx context.Context, driver string, kv KV) HealthCheck {
	start := time.Now()
	hc := HealthCheck{Healthy: true, Driver: driver, LastCheck: start}
	if err := kv.Ping(ctx); err != nil {
		hc.Healthy = false
		hc.Errors = append(hc.Errors, err.Error())
	}
	hc.ResponseTimeMS = time.Since(start).Milliseconds()
	return hc
}
