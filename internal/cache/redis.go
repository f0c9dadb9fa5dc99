package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nickandperla.net/sentinel/internal/metrics"
)

// Redis is a Cache backed by Redis. Values are stored as JSON under
// "<prefix>:<key>".
type Redis[K comparable, V any] struct {
	client *redis.Client
	prefix string
}

// Connect parses redisURL and checks the connection.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// NewRedis creates a Redis cache namespaced by prefix.
func NewRedis[K comparable, V any](client *redis.Client, prefix string) *Redis[K, V] {
	return &Redis[K, V]{client: client, prefix: prefix}
}

func (r *Redis[K, V]) key(k K) string {
	return fmt.Sprintf("%s:%v", r.prefix, k)
}

// Get returns the decoded value for key.
func (r *Redis[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var value V
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheResults.WithLabelValues("redis", "miss").Inc()
		return value, false, nil
	}
	if err != nil {
		return value, false, err
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("decode cached %s: %w", r.key(key), err)
	}
	metrics.CacheResults.WithLabelValues("redis", "hit").Inc()
	return value, true, nil
}

// Set stores value as JSON for ttl.
func (r *Redis[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

// Delete removes key.
func (r *Redis[K, V]) Delete(ctx context.Context, key K) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
