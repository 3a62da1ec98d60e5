package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKV(t *testing.T) {
	ctx := context.Background()
	kv := New()

	_, ok, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "a", "1"))
	v, ok, _ := kv.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	set, _ := kv.SetNX(ctx, "a", "2", 0)
	assert.False(t, set)

	require.NoError(t, kv.Delete(ctx, "a"))
	set, _ = kv.SetNX(ctx, "a", "2", 0)
	assert.True(t, set)
	assert.NoError(t, kv.Ping(ctx))
}

func TestKV_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv := New()
	kv.now = func() time.Time { return now }

	set, _ := kv.SetNX(ctx, "lock", "x", time.Minute)
	require.True(t, set)

	set, _ = kv.SetNX(ctx, "lock", "y", time.Minute)
	assert.False(t, set)

	now = now.Add(time.Minute)
	_, ok, _ := kv.Get(ctx, "lock")
	assert.False(t, ok)

	set, _ = kv.SetNX(ctx, "lock", "y", time.Minute)
	assert.True(t, set)
}
