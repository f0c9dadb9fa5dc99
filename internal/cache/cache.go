// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package cache provides TTL caches with in-memory and Redis backends.
package cache

import (
	"context"
	"time"
)

// Cache maps keys to values that expire after a TTL.
type Cache[K comparable, V any] interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key K) (V, bool, error)
	// Set stores value under key. A ttl of zero never expires.
	Set(ctx context.Context, key K, value V, ttl time.Duration) error
	Delete(ctx context.Context, key K) error
}
