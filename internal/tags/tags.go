// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package tags implements the tag commands on top of a store.TagStore.
package tags

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"nickandperla.net/sentinel/internal/fuzz"
	"nickandperla.net/sentinel/internal/metrics"
	"nickandperla.net/sentinel/internal/models"
	"nickandperla.net/sentinel/internal/store"
)

const (
	MaxNameLength    = 32
	MaxContentLength = 2000
)

var (
	ErrTagNotFound = errors.New("tags: tag not found")
	ErrTagExists   = errors.New("tags: a tag with that name already exists")
	ErrNotOwner    = errors.New("tags: you do not own this tag")
	ErrNotAlias    = errors.New("tags: tag is not an alias")
)

// BadInputError reports a rejected tag name or content.
type BadInputError struct {
	Reason string
}

func (e *BadInputError) Error() string {
	return "tags: " + e.Reason
}

// Info describes a tag along with the aliases pointing at it.
type Info struct {
	Entry   *models.TagEntry
	Aliases []models.TagMeta
}

// Match is a tag found by Search.
type Match struct {
	Tag   models.TagMeta
	Ratio float64
}

// Service runs tag commands for one store.
type Service struct {
	store store.TagStore
}

// NewService creates a tag service backed by s.
func NewService(s store.TagStore) *Service {
	return &Service{store: s}
}

// Normalize lowercases and trims a tag name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateName(name string) error {
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxNameLength {
		return &BadInputError{Reason: fmt.Sprintf("tag names must be 1-%d characters", MaxNameLength)}
	}
	return nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &BadInputError{Reason: "tag content cannot be empty"}
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return &BadInputError{Reason: fmt.Sprintf("tag content must be at most %d characters, got %d", MaxContentLength, n)}
	}
	return nil
}

// resultError maps a store result to the service's errors.
func resultError(res store.Result) error {
	switch res {
	case store.Success:
		return nil
	case store.AlreadyExists:
		return ErrTagExists
	case store.NotFound:
		return ErrTagNotFound
	case store.MissingPermissions:
		return ErrNotOwner
	case store.NotAlias:
		return ErrNotAlias
	default:
		return fmt.Errorf("tags: unexpected result %s", res)
	}
}

func mutation(res store.Result, err error) error {
	if err != nil {
		return err
	}
	return resultError(res)
}

// Get returns a tag for display and counts the use. A lookup through an
// alias counts once on the tag and once on the alias.
func (s *Service) Get(ctx context.Context, guildID int64, name string) (*models.TagEntry, error) {
	entry, err := s.store.GetTagByName(ctx, guildID, Normalize(name), true)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		metrics.TagLookups.WithLabelValues("miss").Inc()
		return nil, ErrTagNotFound
	}

	if err := s.store.IncrementTagUses(ctx, entry.ID, 1); err != nil {
		return nil, fmt.Errorf("increment uses: %w", err)
	}
	if entry.Redirected() {
		metrics.TagLookups.WithLabelValues("alias").Inc()
		if err := s.store.IncrementTagUses(ctx, entry.RedirectedFrom.ID, 1); err != nil {
			return nil, fmt.Errorf("increment alias uses: %w", err)
		}
	} else {
		metrics.TagLookups.WithLabelValues("hit").Inc()
	}
	return entry, nil
}

// Info returns a tag and its aliases without counting a use. Aliases are
// reported as the bare alias record.
func (s *Service) Info(ctx context.Context, guildID int64, name string) (*Info, error) {
	entry, err := s.store.GetTagByName(ctx, guildID, Normalize(name), false)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrTagNotFound
	}
	info := &Info{Entry: entry}
	if entry.IsAlias() {
		return info, nil
	}
	if info.Aliases, err = s.store.GetAliases(ctx, entry.ID); err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	return info, nil
}

// Create stores a new tag owned by ownerID.
func (s *Service) Create(ctx context.Context, guildID, ownerID int64, name, content string) error {
	name = Normalize(name)
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateContent(content); err != nil {
		return err
	}
	return mutation(s.store.CreateTag(ctx, name, content, ownerID, guildID))
}

// Edit replaces a tag's content. Pass store.AnyOwner to skip the owner check.
func (s *Service) Edit(ctx context.Context, guildID, ownerID int64, name, content string) error {
	if err := validateContent(content); err != nil {
		return err
	}
	return mutation(s.store.EditTagByName(ctx, guildID, Normalize(name), content, ownerID))
}

// Delete removes a tag and its aliases. Naming an alias deletes its tag.
func (s *Service) Delete(ctx context.Context, guildID, ownerID int64, name string) error {
	return mutation(s.store.DeleteTagByName(ctx, guildID, Normalize(name), ownerID))
}

// Transfer hands a tag to newOwnerID.
func (s *Service) Transfer(ctx context.Context, guildID, ownerID int64, name string, newOwnerID int64) error {
	return mutation(s.store.TransferTagOwnership(ctx, guildID, Normalize(name), ownerID, newOwnerID))
}

// Alias creates name as an alias of target. Aliasing an alias points the new
// name at the underlying tag.
func (s *Service) Alias(ctx context.Context, guildID, ownerID int64, name, target string) error {
	name = Normalize(name)
	if err := validateName(name); err != nil {
		return err
	}
	entry, err := s.store.GetTagByName(ctx, guildID, Normalize(target), true)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrTagNotFound
	}
	return mutation(s.store.CreateAlias(ctx, name, entry.ID, ownerID, guildID))
}

// DeleteAlias removes an alias. The tag it points at is kept.
func (s *Service) DeleteAlias(ctx context.Context, guildID, ownerID int64, name string) error {
	return mutation(s.store.DeleteAlias(ctx, guildID, Normalize(name), ownerID))
}

// List returns the canonical tags of a guild ordered by name.
func (s *Service) List(ctx context.Context, guildID int64) ([]models.TagMeta, error) {
	return s.store.GetTagsInGuild(ctx, guildID)
}

// Search returns canonical tags whose names score at least minRatio against
// query, best first.
func (s *Service) Search(ctx context.Context, guildID int64, query string, minRatio float64) ([]Match, error) {
	if minRatio < 0 || minRatio > 1 {
		return nil, &BadInputError{Reason: "ratio must be between 0 and 1"}
	}
	query = Normalize(query)
	all, err := s.store.GetTagsInGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, tag := range all {
		if r := fuzz.Ratio(query, tag.Name); r >= minRatio {
			matches = append(matches, Match{Tag: tag, Ratio: r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Ratio > matches[j].Ratio
	})
	return matches, nil
}
