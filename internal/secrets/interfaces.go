package secrets

import (
	"context"
	"fmt"
	"time"
)

// Well-known secret keys.
const (
	KeyGitHubWebhookSecret = "github_webhook_secret"
	KeyTodoistAPIKey       = "todoist_api_key"
	KeyYNABAccessToken     = "ynab_access_token"
	KeyForwardSecret       = "forward_secret"
)

// SecretProvider defines the interface for secret lookups
type SecretProvider interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (*Secret, error)
}

// Secret represents a secret with metadata
type Secret struct {
	Key       string            `json:"key"`
	Value     []byte            `json:"-"` // Never serialize the actual value
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// String returns the secret value as a string
func (s *Secret) String() string {
	return string(s.Value)
}

// Redact returns a redacted version of the secret for logging
func (s *Secret) Redact() *Secret {
	redacted := *s
	if len(redacted.Value) > 0 {
		redacted.Value = []byte(Redact(string(s.Value)))
	}
	return &redacted
}

// SecretNotFoundError wraps secret not found errors with context
type SecretNotFoundError struct {
	Key      string
	Provider string
}

func (e *SecretNotFoundError) Error() string {
	return fmt.Sprintf("secret '%s' not found in provider '%s'", e.Key, e.Provider)
}

// Lookup returns the string value of key, or a *SecretNotFoundError.
func Lookup(ctx context.Context, p SecretProvider, key string) (string, error) {
	if p == nil {
		return "", &SecretNotFoundError{Key: key, Provider: "none"}
	}
	s, err := p.GetSecret(ctx, key)
	if err != nil {
		return "", err
	}
	return s.String(), nil
}

// Static is a SecretProvider over a fixed map, used in tests and for flag-supplied values.
type Static map[string]string

func (m Static) GetSecret(_ context.Context, key string) (*Secret, error) {
	v, ok := m[key]
	if !ok || v == "" {
		return nil, &SecretNotFoundError{Key: key, Provider: "static"}
	}
	return &Secret{Key: key, Value: []byte(v), CreatedAt: time.Now()}, nil
}
