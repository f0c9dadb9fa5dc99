// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package cache

import (
	"context"
	"sync"
	"time"

	"nickandperla.net/sentinel/internal/metrics"
)

type entry[V any] struct {
	value   V
	expires time.Time // zero for no expiry
}

// Memory is an in-process TTL cache. Expired entries are dropped lazily on
// access and by Sweep.
type Memory[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory[K comparable, V any]() *Memory[K, V] {
	return &Memory[K, V]{
		entries: make(map[K]entry[V]),
		now:     time.Now,
	}
}

// Get returns the live value for key.
func (m *Memory[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if ok && m.expired(e) {
		delete(m.entries, key)
		ok = false
	}
	if !ok {
		metrics.CacheResults.WithLabelValues("memory", "miss").Inc()
		var zero V
		return zero, false, nil
	}
	metrics.CacheResults.WithLabelValues("memory", "hit").Inc()
	return e.value, true, nil
}

// Set stores value under key for ttl.
func (m *Memory[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := entry[V]{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Delete removes key.
func (m *Memory[K, V]) Delete(ctx context.Context, key K) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (m *Memory[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep drops every expired entry.
func (m *Memory[K, V]) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, k)
		}
	}
}

func (m *Memory[K, V]) expired(e entry[V]) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
