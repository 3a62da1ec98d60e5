package secrets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// EnvProvider implements SecretProvider for environment variables
type EnvProvider struct {
	prefix         string
	getenv         func(string) string
	redactPatterns []*regexp.Regexp
}

// NewEnvProvider creates a new environment variable secret provider.
// Keys map to upper-cased variables, optionally behind prefix: "todoist_api_key" -> TODOIST_API_KEY.
func NewEnvProvider(prefix string) *EnvProvider {
	defaultPatterns := []string{
		`(?i).*secret.*`,
		`(?i).*key.*`,
		`(?i).*token.*`,
		`(?i).*dsn.*`,
	}

	redactPatterns := make([]*regexp.Regexp, len(defaultPatterns))
	for i, pattern := range defaultPatterns {
		redactPatterns[i] = regexp.MustCompile(pattern)
	}

	return &EnvProvider{
		prefix:         prefix,
		getenv:         os.Getenv,
		redactPatterns: redactPatterns,
	}
}

// WithLookup replaces the environment lookup, for tests.
func (p *EnvProvider) WithLookup(getenv func(string) string) *EnvProvider {
	p.getenv = getenv
	return p
}

// GetSecret retrieves a secret from environment variables
func (p *EnvProvider) GetSecret(_ context.Context, key string) (*Secret, error) {
	envKey := p.buildEnvKey(key)
	value := strings.TrimSpace(p.getenv(envKey))

	if value == "" {
		return nil, &SecretNotFoundError{
			Key:      key,
			Provider: "environment",
		}
	}

	return &Secret{
		Key:       key,
		Value:     []byte(value),
		CreatedAt: time.Now(),
		Metadata: map[string]string{
			"source":   "environment",
			"env_key":  envKey,
			"redacted": fmt.Sprint(p.shouldRedact(envKey)),
		},
	}, nil
}

func (p *EnvProvider) buildEnvKey(key string) string {
	if p.prefix == "" {
		return strings.ToUpper(key)
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(p.prefix), strings.ToUpper(key))
}

func (p *EnvProvider) shouldRedact(envKey string) bool {
	for _, pattern := range p.redactPatterns {
		if pattern.MatchString(envKey) {
			return true
		}
	}
	return false
}
