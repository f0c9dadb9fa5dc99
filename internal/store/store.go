// Package store provides persistence for tags, aliases and guild and user
// configuration.
package store

import (
	"context"

	"nickandperla.net/sentinel/internal/models"
)

// Result is the outcome of a tag mutation.
type Result int

const (
	Success Result = iota
	AlreadyExists
	NotFound
	MissingPermissions
	NotAlias
)

// String returns the string representation of a Result.
func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case AlreadyExists:
		return "ALREADY_EXISTS"
	case NotFound:
		return "NOT_FOUND"
	case MissingPermissions:
		return "MISSING_PERMISSIONS"
	case NotAlias:
		return "NOT_ALIAS"
	default:
		return "UNKNOWN"
	}
}

// AnyOwner skips the ownership check of a mutation.
const AnyOwner int64 = 0

// TagStore persists tags and aliases.
type TagStore interface {
	// GetTagByName looks up a tag or alias. With allowRedirect an alias
	// resolves to its canonical tag and the alias is reported in
	// RedirectedFrom; without it the bare alias record is returned with
	// nil Content. Returns nil if not found.
	GetTagByName(ctx context.Context, guildID int64, name string, allowRedirect bool) (*models.TagEntry, error)
	CreateTag(ctx context.Context, name, content string, ownerID, guildID int64) (Result, error)
	// CreateAlias points name at targetID. Only canonical targets are accepted.
	CreateAlias(ctx context.Context, name string, targetID, ownerID, guildID int64) (Result, error)
	EditTagByName(ctx context.Context, guildID int64, name, content string, ownerID int64) (Result, error)
	// DeleteTagByName deletes a canonical tag and all its aliases.
	DeleteTagByName(ctx context.Context, guildID int64, name string, ownerID int64) (Result, error)
	TransferTagOwnership(ctx context.Context, guildID int64, name string, ownerID, newOwnerID int64) (Result, error)
	DeleteAlias(ctx context.Context, guildID int64, name string, ownerID int64) (Result, error)
	IncrementTagUses(ctx context.Context, tagID, amount int64) error
	// GetTagsInGuild returns canonical tags only, ordered by name.
	GetTagsInGuild(ctx context.Context, guildID int64) ([]models.TagMeta, error)
	// GetAliases returns the aliases pointing at tagID, ordered by name.
	GetAliases(ctx context.Context, tagID int64) ([]models.TagMeta, error)
}

// GuildStore persists guilds and their configuration.
type GuildStore interface {
	EnsureGuild(ctx context.Context, guildID int64) error
	EnsureGuildConfig(ctx context.Context, guildID int64) error
	// GetGuildConfig returns nil if the guild has no config row.
	GetGuildConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error)
	// GetAutoresponseFunctions returns found=false if the guild has no
	// config row.
	GetAutoresponseFunctions(ctx context.Context, guildID int64) (functions []string, found bool, err error)
	SetAutoresponseFunctions(ctx context.Context, guildID int64, functions []string) error
	SetAutoresponseEnabled(ctx context.Context, guildID int64, enabled bool) error
	SetAllowAutoresponseImmunity(ctx context.Context, guildID int64, allow bool) error
	SetPrefix(ctx context.Context, guildID int64, prefix string) error
}

// UserStore persists user configuration.
type UserStore interface {
	EnsureUserConfig(ctx context.Context, userID int64) error
	GetAutoresponseImmune(ctx context.Context, userID int64) (bool, error)
	SetAutoresponseImmune(ctx context.Context, userID int64, immune bool) error
}

// Store is the full persistence interface.
// SQLite, Postgres and Memory implement it.
type Store interface {
	TagStore
	GuildStore
	UserStore

	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
	_ Store = (*Memory)(nil)
)
