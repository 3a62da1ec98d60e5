// Package redis stores KV entries in Redis under a namespace prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// Options configures the Redis client
type Options struct {
	Addr      string
	DB        int
	Namespace string
	Timeout   time.Duration
}

// KV implements persistence.KV over a Redis client
type KV struct {
	client  *goredis.Client
	prefix  string
	timeout time.Duration
}

// New dials Redis with opts.
func New(opts Options) *KV {
	client := goredis.NewClient(&goredis.Options{Addr: opts.Addr, DB: opts.DB})
	return NewWithClient(client, opts.Namespace, opts.Timeout)
}

// NewWithClient wraps an existing client; namespace may be empty.
func NewWithClient(client *goredis.Client, namespace string, timeout time.Duration) *KV {
	prefix := ""
	if namespace != "" {
		prefix = namespace + ":"
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &KV{client: client, prefix: prefix, timeout: timeout}
}

func (r *KV) key(k string) string { return r.prefix + k }

func (r *KV) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *KV) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *KV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := r.client.SetNX(ctx, r.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (r *KV) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *KV) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool
func (r *KV) Close() error {
	return r.client.Close()
}
