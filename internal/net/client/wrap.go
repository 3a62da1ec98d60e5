// Package client wraps outbound HTTP transports with rate limiting and circuit breaking.
package client

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// WrapperConfig configures the HTTP client wrapper
type WrapperConfig struct {
	Provider            string
	RPS                 float64 // zero disables rate limiting
	Burst               int
	ConsecutiveFailures uint32        // failures that open the circuit
	OpenTimeout         time.Duration // time the circuit stays open
	UserAgent           string
}

// Wrapper wraps an HTTP RoundTripper with rate limiting and circuit breaking
type Wrapper struct {
	config    WrapperConfig
	transport http.RoundTripper
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
}

// errRetryableStatus marks responses the breaker should count as failures
// while still handing the response to the caller.
var errRetryableStatus = errors.New("retryable status")

// NewWrapper creates a new HTTP client wrapper
func NewWrapper(config WrapperConfig, transport http.RoundTripper) *Wrapper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if config.ConsecutiveFailures == 0 {
		config.ConsecutiveFailures = 5
	}
	if config.OpenTimeout == 0 {
		config.OpenTimeout = 60 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "taskbridge/1.0"
	}

	w := &Wrapper{config: config, transport: transport}

	if config.RPS > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(config.RPS), burst)
	}

	w.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     config.Provider,
		Interval: 60 * time.Second,
		Timeout:  config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return w
}

// RoundTrip implements http.RoundTripper
func (w *Wrapper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", w.config.UserAgent)
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(req.Context()); err != nil {
			return nil, &ProviderError{
				Provider: w.config.Provider,
				Type:     "rate_limit",
				Err:      fmt.Errorf("rate limit wait failed: %w", err),
			}
		}
	}

	result, err := w.breaker.Execute(func() (interface{}, error) {
		resp, err := w.transport.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return resp, errRetryableStatus
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, errRetryableStatus):
		return result.(*http.Response), nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, &ProviderError{Provider: w.config.Provider, Type: "circuit", Err: err}
	case err != nil:
		return nil, &ProviderError{Provider: w.config.Provider, Type: "transport", Err: err}
	}

	return result.(*http.Response), nil
}

// State returns the circuit breaker state ("closed", "half-open", "open")
func (w *Wrapper) State() string {
	return w.breaker.State().String()
}

// Name returns the provider name the wrapper was built for
func (w *Wrapper) Name() string {
	return w.config.Provider
}

// NewHTTPClient returns an *http.Client using a fresh Wrapper
func NewHTTPClient(config WrapperConfig, timeout time.Duration) (*http.Client, *Wrapper) {
	w := NewWrapper(config, nil)
	return &http.Client{Transport: w, Timeout: timeout}, w
}

// ProviderError represents an error from a provider with context
type ProviderError struct {
	Provider   string `json:"provider"`
	Type       string `json:"type"` // "rate_limit", "circuit", "transport", "http_error"
	StatusCode int    `json:"status_code,omitempty"`
	Err        error  `json:"-"`
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s %s error (HTTP %d): %v", e.Provider, e.Type, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s %s error: %v", e.Provider, e.Type, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsCircuitOpen returns true if the error is due to circuit breaker being open
func (e *ProviderError) IsCircuitOpen() bool {
	return e.Type == "circuit"
}
