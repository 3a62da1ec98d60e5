package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvProvider_GetSecret(t *testing.T) {
	env := map[string]string{
		"TODOIST_API_KEY":       "abc123def456",
		"APP_YNAB_ACCESS_TOKEN": " tok ",
		"GITHUB_WEBHOOK_SECRET": "",
	}
	lookup := func(k string) string { return env[k] }

	t.Run("found", func(t *testing.T) {
		p := NewEnvProvider("").WithLookup(lookup)
		s, err := p.GetSecret(context.Background(), KeyTodoistAPIKey)
		require.NoError(t, err)
		assert.Equal(t, "abc123def456", s.String())
		assert.Equal(t, "true", s.Metadata["redacted"])
		assert.Equal(t, "********f456", s.Redact().String())
	})

	t.Run("prefix and trimming", func(t *testing.T) {
		p := NewEnvProvider("app").WithLookup(lookup)
		v, err := Lookup(context.Background(), p, KeyYNABAccessToken)
		require.NoError(t, err)
		assert.Equal(t, "tok", v)
	})

	t.Run("empty is missing", func(t *testing.T) {
		p := NewEnvProvider("").WithLookup(lookup)
		_, err := p.GetSecret(context.Background(), KeyGitHubWebhookSecret)
		var nf *SecretNotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, KeyGitHubWebhookSecret, nf.Key)
	})
}

func TestStaticAndRedact(t *testing.T) {
	p := Static{KeyTodoistAPIKey: "x"}
	v, err := Lookup(context.Background(), p, KeyTodoistAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	_, err = Lookup(context.Background(), p, KeyYNABAccessToken)
	assert.Error(t, err)

	_, err = Lookup(context.Background(), nil, KeyYNABAccessToken)
	assert.Error(t, err)

	assert.Equal(t, "***", Redact("abc"))
}
