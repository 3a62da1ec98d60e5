// Package clients holds the HTTP plumbing shared by the third-party API clients.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sawpanic/taskbridge/internal/apperr"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 2048

// StatusError is a non-2xx response from a remote API.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.StatusCode, e.Body)
}

// Request describes one JSON call.
type Request struct {
	Op      string // operation name used in errors, e.g. "todoist.create_task"
	Service string
	Method  string
	URL     string
	Token   string // bearer token, omitted when empty
	Headers map[string]string
	Body    interface{} // JSON-encoded when non-nil
	RawBody []byte      // sent verbatim as JSON when Body is nil
	Out     interface{} // JSON-decoded from a 2xx body when non-nil
}

// Do executes r with hc. Transport failures and non-2xx responses are
// apperr.Upstream, except 404 which is apperr.NotFound.
func Do(ctx context.Context, hc *http.Client, r Request) error {
	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return apperr.Validation(r.Op, fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(b)
	} else if r.RawBody != nil {
		body = bytes.NewReader(r.RawBody)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return apperr.Upstream(r.Op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return apperr.Upstream(r.Op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{Service: r.Service, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
		if resp.StatusCode == http.StatusNotFound {
			return apperr.NotFound(r.Op, se)
		}
		return apperr.Upstream(r.Op, se)
	}

	if r.Out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.Out); err != nil {
		return apperr.Upstream(r.Op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
