package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/domain"
	httpContracts "github.com/sawpanic/taskbridge/internal/http"
	"github.com/sawpanic/taskbridge/internal/metrics"
	"github.com/sawpanic/taskbridge/internal/persistence"
	"github.com/sawpanic/taskbridge/internal/reconcile"
	"github.com/sawpanic/taskbridge/internal/scheduler"
	"github.com/sawpanic/taskbridge/internal/secrets"
)

// ProjectLookup confirms a task-manager project exists.
type ProjectLookup interface {
	GetProject(ctx context.Context, id string) (domain.Project, error)
}

// IssueReconciler applies an issue event to a project.
type IssueReconciler interface {
	Reconcile(ctx context.Context, event domain.IssueEvent, projectID string) (reconcile.Outcome, error)
}

// PayloadTransformer turns a forwarded ledger payload into tasks.
type PayloadTransformer interface {
	Transform(ctx context.Context, payload domain.Payload) error
}

// Breaker is an outbound circuit reported by /health.
type Breaker interface {
	Name() string
	State() string
}

// Deps are the collaborators the handlers drive. Poller and Store are optional.
type Deps struct {
	Secrets     secrets.SecretProvider
	Projects    ProjectLookup
	Reconciler  IssueReconciler
	Transformer PayloadTransformer
	Metrics     *metrics.Registry

	Store       persistence.KV
	StoreDriver string
	Breakers    []Breaker
	Poller      func() scheduler.Status
	Version     string

	// MaxBodyBytes caps webhook bodies; zero means 5 MiB
	MaxBodyBytes int64
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	deps      Deps
	startTime time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Deps) *Handlers {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 5 << 20
	}
	return &Handlers{deps: deps, startTime: time.Now()}
}

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id stored by WithRequestID, or "unknown".
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, httpContracts.ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// writeFailure logs err and answers with the status its kind maps to.
func (h *Handlers) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", RequestID(r.Context())).
		Str("path", r.URL.Path).
		Str("kind", kind.String()).
		Int("status", status).
		Msg("Request failed")

	message := err.Error()
	if kind == apperr.KindConfiguration {
		message = "Webhook configured incorrectly"
	}
	h.writeError(w, r, status, kind.String(), message)
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}

// MethodNotAllowed handles 405 responses from the router
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed",
		"Method "+r.Method+" is not allowed on this endpoint")
}
