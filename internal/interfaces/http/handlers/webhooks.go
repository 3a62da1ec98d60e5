package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/clients/forward"
	"github.com/sawpanic/taskbridge/internal/domain"
	httpContracts "github.com/sawpanic/taskbridge/internal/http"
	"github.com/sawpanic/taskbridge/internal/ledger"
	"github.com/sawpanic/taskbridge/internal/secrets"
	"github.com/sawpanic/taskbridge/internal/signature"
)

// EventHeader names the issue tracker's event type.
const EventHeader = "X-GitHub-Event"

// readBody reads the raw body; signatures are computed over these exact bytes.
func (h *Handlers) readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.deps.MaxBodyBytes))
	if err != nil {
		return nil, apperr.Validation(op, fmt.Errorf("failed to read body: %w", err))
	}
	return body, nil
}

func (h *Handlers) requireSecret(r *http.Request, op, key string) (string, error) {
	v, err := secrets.Lookup(r.Context(), h.deps.Secrets, key)
	if err != nil {
		return "", apperr.Configuration(op, err)
	}
	return v, nil
}

// GitHubToTodoist handles POST /github-to-todoist/{projectId}
func (h *Handlers) GitHubToTodoist(w http.ResponseWriter, r *http.Request) {
	const op = "github.webhook"
	ctx := r.Context()
	projectID := mux.Vars(r)["projectId"]

	secret, err := h.requireSecret(r, op, secrets.KeyGitHubWebhookSecret)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if _, err := h.requireSecret(r, op, secrets.KeyTodoistAPIKey); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	body, err := h.readBody(w, r, op)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if !signature.Verify(body, r.Header.Get(signature.HeaderName), secret) {
		h.writeFailure(w, r, apperr.Authentication(op, errors.New("signature mismatch")))
		return
	}

	switch event := r.Header.Get(EventHeader); event {
	case "ping":
		h.writeJSON(w, http.StatusOK, httpContracts.WebhookResponse{Status: "pong", RequestID: RequestID(ctx)})
		return
	case "issues":
	default:
		h.writeFailure(w, r, apperr.Unsupported(op, fmt.Errorf("unsupported event %q", event)))
		return
	}

	var event domain.IssueEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.writeFailure(w, r, apperr.Validation(op, fmt.Errorf("malformed issue event: %w", err)))
		return
	}
	if !event.Action.Supported() {
		h.writeFailure(w, r, apperr.Unsupported(op, fmt.Errorf("unsupported action %q", event.Action)))
		return
	}

	if _, err := h.deps.Projects.GetProject(ctx, projectID); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	outcome, err := h.deps.Reconciler.Reconcile(ctx, event, projectID)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	log.Info().
		Str("request_id", RequestID(ctx)).
		Str("project", projectID).
		Str("action", string(event.Action)).
		Str("outcome", string(outcome)).
		Msg("Issue event processed")
	h.writeJSON(w, http.StatusOK, httpContracts.WebhookResponse{Status: "ok", Outcome: string(outcome), RequestID: RequestID(ctx)})
}

// YNABToTodoist handles POST /ynab-to-todoist. When a forward secret is
// configured the body must carry the poller's signature.
func (h *Handlers) YNABToTodoist(w http.ResponseWriter, r *http.Request) {
	const op = "ynab.webhook"
	ctx := r.Context()

	if _, err := h.requireSecret(r, op, secrets.KeyTodoistAPIKey); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	body, err := h.readBody(w, r, op)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}
	if secret, err := secrets.Lookup(ctx, h.deps.Secrets, secrets.KeyForwardSecret); err == nil {
		if !signature.Verify(body, r.Header.Get(forward.SignatureHeader), secret) {
			h.writeFailure(w, r, apperr.Authentication(op, errors.New("signature mismatch")))
			return
		}
	}

	payload, err := ledger.DecodePayload(body)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	if err := h.deps.Transformer.Transform(ctx, payload); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	log.Info().Str("request_id", RequestID(ctx)).Int("ledgers", len(payload)).Msg("Ledger payload processed")
	h.writeJSON(w, http.StatusOK, httpContracts.WebhookResponse{Status: "ok", RequestID: RequestID(ctx)})
}
