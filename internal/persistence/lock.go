package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lock is a lease held in a KV store. It bounds overlap between processes
// sharing the store; the TTL reclaims leases from crashed holders.
type Lock struct {
	kv    KV
	key   string
	ttl   time.Duration
	token string
}

func NewLock(kv KV, key string, ttl time.Duration) *Lock {
	return &Lock{kv: kv, key: key, ttl: ttl}
}

// TryAcquire takes the lease if nobody holds it.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.kv.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release drops the lease if this Lock still holds it.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""

	v, ok, err := l.kv.Get(ctx, l.key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", l.key, err)
	}
	if !ok || v != token {
		// expired and taken over
		return nil
	}
	return l.kv.Delete(ctx, l.key)
}
