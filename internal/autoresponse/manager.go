// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package autoresponse

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"nickandperla.net/sentinel/internal/fuzz"
	"nickandperla.net/sentinel/internal/store"
)

// Choice is one autocomplete suggestion. Value is a stored function,
// truncated to MaxChoiceValue characters.
type Choice struct {
	Name  string
	Value string
}

// Immunity is a user's immunity flag along with whether their guild lets
// them change it.
type Immunity struct {
	Immune  bool
	Allowed bool
}

// Manager edits the autoresponse functions and flags of guilds and users.
type Manager struct {
	guilds store.GuildStore
	users  store.UserStore
}

// NewManager creates a manager over guilds and users.
func NewManager(guilds store.GuildStore, users store.UserStore) *Manager {
	return &Manager{guilds: guilds, users: users}
}

// List returns the parsed functions of a guild in stored order.
func (m *Manager) List(ctx context.Context, guildID int64) ([]Function, error) {
	stored, err := m.stored(ctx, guildID)
	if err != nil {
		return nil, err
	}
	functions := make([]Function, 0, len(stored))
	for _, s := range stored {
		if fn, ok := ParseFunction(s); ok {
			functions = append(functions, fn)
		}
	}
	return functions, nil
}

// Add validates and appends a function. Names must be unique in a guild.
func (m *Manager) Add(ctx context.Context, guildID int64, name, script string) (Function, error) {
	if err := ValidateName(name); err != nil {
		return Function{}, err
	}
	if err := ValidateScript(script); err != nil {
		return Function{}, err
	}
	stored, err := m.stored(ctx, guildID)
	if err != nil {
		return Function{}, err
	}
	for _, s := range stored {
		if fn, ok := ParseFunction(s); ok && fn.Name == name {
			return Function{}, badInput("a function named %q already exists", name)
		}
	}

	fn := Function{Name: name, Script: strings.TrimSpace(script)}
	updated := append(stored[:len(stored):len(stored)], fn.String())
	if err := m.guilds.SetAutoresponseFunctions(ctx, guildID, updated); err != nil {
		return Function{}, fmt.Errorf("store functions: %w", err)
	}
	return fn, nil
}

// Remove deletes the first stored function starting with prefix. The prefix
// is usually a Choice value, which may have been truncated.
func (m *Manager) Remove(ctx context.Context, guildID int64, prefix string) (Function, error) {
	if prefix == "" {
		return Function{}, ErrFunctionNotFound
	}
	stored, err := m.stored(ctx, guildID)
	if err != nil {
		return Function{}, err
	}
	for i, s := range stored {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		updated := make([]string, 0, len(stored)-1)
		updated = append(updated, stored[:i]...)
		updated = append(updated, stored[i+1:]...)
		if err := m.guilds.SetAutoresponseFunctions(ctx, guildID, updated); err != nil {
			return Function{}, fmt.Errorf("store functions: %w", err)
		}
		fn, _ := ParseFunction(s)
		return fn, nil
	}
	return Function{}, ErrFunctionNotFound
}

// Autocomplete suggests stored functions whose name resembles argument. An
// empty argument matches everything.
func (m *Manager) Autocomplete(ctx context.Context, guildID int64, argument string) ([]Choice, error) {
	functions, err := m.List(ctx, guildID)
	if err != nil {
		return nil, err
	}

	type scored struct {
		choice Choice
		ratio  float64
	}
	var matches []scored
	for _, fn := range functions {
		ratio := fuzz.Ratio(argument, fn.Name)
		if argument != "" && ratio <= MinChoiceRatio {
			continue
		}
		matches = append(matches, scored{
			choice: Choice{Name: fn.Name, Value: truncate(fn.String(), MaxChoiceValue)},
			ratio:  ratio,
		})
		if len(matches) == MaxChoices {
			break
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ratio > matches[j].ratio
	})

	choices := make([]Choice, len(matches))
	for i, s := range matches {
		choices[i] = s.choice
	}
	return choices, nil
}

// SetEnabled turns autoresponse processing on or off for a guild.
func (m *Manager) SetEnabled(ctx context.Context, guildID int64, enabled bool) error {
	if err := m.guilds.EnsureGuildConfig(ctx, guildID); err != nil {
		return err
	}
	return m.guilds.SetAutoresponseEnabled(ctx, guildID, enabled)
}

// SetAllowImmunity controls whether members of a guild may change their
// immunity flag.
func (m *Manager) SetAllowImmunity(ctx context.Context, guildID int64, allow bool) error {
	if err := m.guilds.EnsureGuildConfig(ctx, guildID); err != nil {
		return err
	}
	return m.guilds.SetAllowAutoresponseImmunity(ctx, guildID, allow)
}

// Immunity reports a user's flag and whether guildID lets them change it.
func (m *Manager) Immunity(ctx context.Context, userID, guildID int64) (Immunity, error) {
	if err := m.users.EnsureUserConfig(ctx, userID); err != nil {
		return Immunity{}, err
	}
	immune, err := m.users.GetAutoresponseImmune(ctx, userID)
	if err != nil {
		return Immunity{}, err
	}
	cfg, err := m.guilds.GetGuildConfig(ctx, guildID)
	if err != nil {
		return Immunity{}, err
	}
	return Immunity{Immune: immune, Allowed: cfg != nil && cfg.AllowAutoresponseImmunity}, nil
}

// SetImmune sets a user's immunity flag. The caller decides whether the
// guild allows the change; see Immunity.
func (m *Manager) SetImmune(ctx context.Context, userID int64, immune bool) error {
	if err := m.users.EnsureUserConfig(ctx, userID); err != nil {
		return err
	}
	return m.users.SetAutoresponseImmune(ctx, userID, immune)
}

// Page returns the functions on a 1-based page and the number of pages.
func Page(functions []Function, page, size int) ([]Function, int) {
	if size <= 0 {
		size = 10
	}
	pages := (len(functions) + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if start > len(functions) {
		start = len(functions)
	}
	if end > len(functions) {
		end = len(functions)
	}
	return functions[start:end], pages
}

func (m *Manager) stored(ctx context.Context, guildID int64) ([]string, error) {
	if err := m.guilds.EnsureGuildConfig(ctx, guildID); err != nil {
		return nil, fmt.Errorf("ensure guild config: %w", err)
	}
	stored, _, err := m.guilds.GetAutoresponseFunctions(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load functions: %w", err)
	}
	return stored, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
