// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package cache

import (
	"context"
	"time"

	"nickandperla.net/sentinel/internal/store"
)

// FunctionList is the cached form of a guild's autoresponse functions.
type FunctionList struct {
	Functions []string `json:"functions"`
}

// GuildStore serves autoresponse function lists from a cache in front of a
// store.GuildStore. Mutations through it invalidate the cached list.
type GuildStore struct {
	store.GuildStore
	cache Cache[int64, FunctionList]
	ttl   time.Duration
}

// NewGuildStore wraps inner with c.
func NewGuildStore(inner store.GuildStore, c Cache[int64, FunctionList], ttl time.Duration) *GuildStore {
	return &GuildStore{GuildStore: inner, cache: c, ttl: ttl}
}

// GetAutoresponseFunctions returns the cached list, loading it on a miss.
// Unseen guilds are never cached.
func (g *GuildStore) GetAutoresponseFunctions(ctx context.Context, guildID int64) ([]string, bool, error) {
	if list, ok, err := g.cache.Get(ctx, guildID); err == nil && ok {
		return list.Functions, true, nil
	}
	functions, found, err := g.GuildStore.GetAutoresponseFunctions(ctx, guildID)
	if err != nil || !found {
		return functions, found, err
	}
	if functions == nil {
		functions = []string{}
	}
	_ = g.cache.Set(ctx, guildID, FunctionList{Functions: functions}, g.ttl)
	return functions, true, nil
}

// SetAutoresponseFunctions stores functions and drops the cached list.
func (g *GuildStore) SetAutoresponseFunctions(ctx context.Context, guildID int64, functions []string) error {
	if err := g.GuildStore.SetAutoresponseFunctions(ctx, guildID, functions); err != nil {
		return err
	}
	return g.Invalidate(ctx, guildID)
}

// Invalidate drops the cached list of a guild.
func (g *GuildStore) Invalidate(ctx context.Context, guildID int64) error {
	return g.cache.Delete(ctx, guildID)
}
