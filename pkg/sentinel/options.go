// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package sentinel

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nickandperla.net/sentinel/internal/cache"
	"nickandperla.net/sentinel/internal/platform"
	"nickandperla.net/sentinel/internal/store"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithStore sets the store. The runtime closes it on Close.
func WithStore(s store.Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithSQLiteStore opens a SQLite database at path.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		s, err := store.NewSQLite(path)
		if err != nil {
			r.err = err
			return
		}
		r.store = s
	}
}

// WithPostgresStore connects to a Postgres database and applies the schema.
func WithPostgresStore(ctx context.Context, databaseURL string) Option {
	return func(r *Runtime) {
		s, err := store.NewPostgres(ctx, databaseURL)
		if err != nil {
			r.err = err
			return
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			r.err = err
			return
		}
		r.store = s
	}
}

// WithMemoryStore keeps everything in memory (for testing).
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.store = store.NewMemory()
	}
}

// WithMessenger sets the messaging collaborator. If it also implements
// platform.History it is used for last_ placeholders unless WithHistory is
// given.
func WithMessenger(m platform.Messenger) Option {
	return func(r *Runtime) {
		r.messenger = m
	}
}

// WithHistory sets the message history reader.
func WithHistory(h platform.History) Option {
	return func(r *Runtime) {
		r.history = h
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithCache sets the cache of guild function lists.
func WithCache(c cache.Cache[int64, cache.FunctionList]) Option {
	return func(r *Runtime) {
		r.functions = c
	}
}

// WithRedisCache caches guild function lists in Redis.
func WithRedisCache(client *redis.Client) Option {
	return func(r *Runtime) {
		r.functions = cache.NewRedis[int64, cache.FunctionList](client, "sentinel:functions")
	}
}

// WithCacheTTL sets how long guild function lists stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Runtime) {
		r.cacheTTL = ttl
	}
}

// WithDrainTimeout sets how long Close waits for dispatched messages.
func WithDrainTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		r.drain = d
	}
}
