// Package memory is an in-process KV used for single-instance deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	v   string
	exp time.Time
}

// KV is a mutex-guarded map with optional per-key expiry.
type KV struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

func New() *KV {
	return &KV{m: make(map[string]entry), now: time.Now}
}

func (c *KV) live(key string) (entry, bool) {
	e, ok := c.m[key]
	if !ok {
		return entry{}, false
	}
	if !e.exp.IsZero() && !c.now().Before(e.exp) {
		delete(c.m, key)
		return entry{}, false
	}
	return e, true
}

func (c *KV) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	return e.v, ok, nil
}

func (c *KV) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = entry{v: value}
	return nil
}

func (c *KV) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live(key); ok {
		return false, nil
	}
	e := entry{v: value}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}
	c.m[key] = e
	return true, nil
}

func (c *KV) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func (c *KV) Ping(context.Context) error { return nil }
