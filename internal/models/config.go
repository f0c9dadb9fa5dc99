// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package models

import "time"

// DefaultPrefix is the text command prefix of a new guild.
const DefaultPrefix = "s!"

// Guild is a guild the bot has joined.
type Guild struct {
	ID          int64     `json:"guild_id"`
	PrimeStatus bool      `json:"prime_status"`
	JoinedAt    time.Time `json:"joined_at"`
}

// GuildConfig is a guild's settings row.
type GuildConfig struct {
	GuildID                   int64    `json:"guild_id"`
	Prefix                    string   `json:"prefix"`
	AutoresponseEnabled       bool     `json:"autoresponse_enabled"`
	AllowAutoresponseImmunity bool     `json:"allow_autoresponse_immunity"`
	AutoresponseFunctions     []string `json:"autoresponse_functions"`
}

// NewGuildConfig returns the defaults applied when a guild is provisioned.
func NewGuildConfig(guildID int64) *GuildConfig {
	return &GuildConfig{
		GuildID:                   guildID,
		Prefix:                    DefaultPrefix,
		AutoresponseEnabled:       true,
		AllowAutoresponseImmunity: true,
		AutoresponseFunctions:     []string{},
	}
}

// UserConfig is a user's settings row.
type UserConfig struct {
	UserID             int64 `json:"user_id"`
	AutoresponseImmune bool  `json:"autoresponse_immune"`
}
