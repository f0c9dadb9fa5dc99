// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package models holds the records persisted by the store.
package models

import "time"

// TagMeta is the per-guild name record of a tag or alias.
type TagMeta struct {
	ID      int64  `json:"tag_id"`
	Name    string `json:"tag_name"`
	OwnerID int64  `json:"owner_id"`
	GuildID int64  `json:"guild_id"`
	AliasTo *int64 `json:"alias_to,omitempty"` // Canonical tag id for aliases
	Uses    int64  `json:"uses"`
}

// IsAlias returns true if the record redirects to another tag.
func (m *TagMeta) IsAlias() bool {
	return m.AliasTo != nil
}

// TagContent is the body of a canonical tag.
type TagContent struct {
	Content   string    `json:"tag_content"`
	Uses      int64     `json:"tag_uses"`
	CreatedAt time.Time `json:"created_at"`
}

// TagEntry is a lookup result. Content is nil when the lookup returned a
// bare alias record. RedirectedFrom carries the alias that was queried
// when the lookup followed a redirect.
type TagEntry struct {
	TagMeta
	Content        *TagContent `json:"content,omitempty"`
	RedirectedFrom *TagMeta    `json:"redirected_from,omitempty"`
}

// Redirected returns true if the entry was reached through an alias.
func (e *TagEntry) Redirected() bool {
	return e.RedirectedFrom != nil
}
