package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"nickandperla.net/sentinel/internal/models"
)

const postgresBackend = "postgres"

// Postgres is a PostgreSQL-backed store.
type Postgres struct {
	pool *pgxpool.Pool
}

// pgQuerier is implemented by *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgres creates a new PostgreSQL store with a connection pool.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

// Migrate applies the schema. It is safe to run repeatedly.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// Tags

const postgresTagSelect = `
	SELECT m.tag_id, m.tag_name, m.owner_id, m.guild_id, m.alias_to, m.uses,
	       c.tag_content, c.tag_uses, c.created_at
	FROM tag_meta m LEFT JOIN tag_content c ON c.tag_id = m.tag_id
`

func scanPostgresEntry(row pgx.Row) (*models.TagEntry, error) {
	var (
		e       models.TagEntry
		content *string
		uses    *int64
		created *time.Time
	)
	err := row.Scan(&e.ID, &e.Name, &e.OwnerID, &e.GuildID, &e.AliasTo, &e.Uses, &content, &uses, &created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if content != nil {
		e.Content = &models.TagContent{Content: *content}
		if uses != nil {
			e.Content.Uses = *uses
		}
		if created != nil {
			e.Content.CreatedAt = *created
		}
	}
	return &e, nil
}

func (s *Postgres) getTag(ctx context.Context, q pgQuerier, guildID int64, name string, allowRedirect bool) (*models.TagEntry, error) {
	e, err := scanPostgresEntry(q.QueryRow(ctx, postgresTagSelect+"WHERE m.guild_id = $1 AND m.tag_name = $2", guildID, name))
	if err != nil || e == nil || !e.IsAlias() || !allowRedirect {
		return e, err
	}
	target, err := scanPostgresEntry(q.QueryRow(ctx, postgresTagSelect+"WHERE m.tag_id = $1", *e.AliasTo))
	if err != nil || target == nil {
		return nil, err
	}
	alias := e.TagMeta
	target.RedirectedFrom = &alias
	return target, nil
}

// GetTagByName looks up a tag or alias by name.
func (s *Postgres) GetTagByName(ctx context.Context, guildID int64, name string, allowRedirect bool) (*models.TagEntry, error) {
	defer observe(postgresBackend, "get_tag")()
	return s.getTag(ctx, s.pool, guildID, name, allowRedirect)
}

// CreateTag inserts the meta and content rows of a new tag in one transaction.
func (s *Postgres) CreateTag(ctx context.Context, name, content string, ownerID, guildID int64) (Result, error) {
	defer observe(postgresBackend, "create_tag")()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	id := NewTagID()
	tag, err := tx.Exec(ctx, `
		INSERT INTO tag_meta (tag_id, tag_name, owner_id, guild_id) VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, id, name, ownerID, guildID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return AlreadyExists, nil
	}

	tag, err = tx.Exec(ctx, `
		INSERT INTO tag_content (tag_id, tag_content) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, id, content)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return AlreadyExists, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return Success, nil
}

// CreateAlias inserts a meta-only row redirecting to targetID.
func (s *Postgres) CreateAlias(ctx context.Context, name string, targetID, ownerID, guildID int64) (Result, error) {
	defer observe(postgresBackend, "create_alias")()

	var aliasTo *int64
	err := s.pool.QueryRow(ctx, "SELECT alias_to FROM tag_meta WHERE tag_id = $1 AND guild_id = $2", targetID, guildID).Scan(&aliasTo)
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound, nil
	}
	if err != nil {
		return 0, err
	}
	if aliasTo != nil {
		return NotFound, nil
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO tag_meta (tag_id, tag_name, owner_id, guild_id, alias_to) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`, NewTagID(), name, ownerID, guildID, targetID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return AlreadyExists, nil
	}
	return Success, nil
}

// EditTagByName replaces the content of a tag, following aliases.
func (s *Postgres) EditTagByName(ctx context.Context, guildID int64, name, content string, ownerID int64) (Result, error) {
	defer observe(postgresBackend, "edit_tag")()

	e, err := s.getTag(ctx, s.pool, guildID, name, true)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return NotFound, nil
	}
	if !permitted(ownerID, e.OwnerID) {
		return MissingPermissions, nil
	}
	if _, err := s.pool.Exec(ctx, "UPDATE tag_content SET tag_content = $1 WHERE tag_id = $2", content, e.ID); err != nil {
		return 0, err
	}
	return Success, nil
}

// DeleteTagByName deletes a tag and, by cascade, its aliases.
func (s *Postgres) DeleteTagByName(ctx context.Context, guildID int64, name string, ownerID int64) (Result, error) {
	defer observe(postgresBackend, "delete_tag")()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	e, err := s.getTag(ctx, tx, guildID, name, true)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return NotFound, nil
	}
	if !permitted(ownerID, e.OwnerID) {
		return MissingPermissions, nil
	}
	if _, err := tx.Exec(ctx, "DELETE FROM tag_meta WHERE tag_id = $1", e.ID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return Success, nil
}

// TransferTagOwnership hands a tag to newOwnerID, following aliases.
func (s *Postgres) TransferTagOwnership(ctx context.Context, guildID int64, name string, ownerID, newOwnerID int64) (Result, error) {
	defer observe(postgresBackend, "transfer_tag")()

	e, err := s.getTag(ctx, s.pool, guildID, name, true)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return NotFound, nil
	}
	if !permitted(ownerID, e.OwnerID) {
		return MissingPermissions, nil
	}
	if _, err := s.pool.Exec(ctx, "UPDATE tag_meta SET owner_id = $1 WHERE tag_id = $2", newOwnerID, e.ID); err != nil {
		return 0, err
	}
	return Success, nil
}

// DeleteAlias deletes an alias record. The named record must be an alias.
func (s *Postgres) DeleteAlias(ctx context.Context, guildID int64, name string, ownerID int64) (Result, error) {
	defer observe(postgresBackend, "delete_alias")()

	e, err := s.getTag(ctx, s.pool, guildID, name, false)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return NotFound, nil
	}
	if !e.IsAlias() {
		return NotAlias, nil
	}
	if !permitted(ownerID, e.OwnerID) {
		return MissingPermissions, nil
	}
	if _, err := s.pool.Exec(ctx, "DELETE FROM tag_meta WHERE tag_id = $1", e.ID); err != nil {
		return 0, err
	}
	return Success, nil
}

// IncrementTagUses bumps the use counters of a tag or alias.
func (s *Postgres) IncrementTagUses(ctx context.Context, tagID, amount int64) error {
	defer observe(postgresBackend, "increment_uses")()

	batch := &pgx.Batch{}
	batch.Queue("UPDATE tag_meta SET uses = uses + $1 WHERE tag_id = $2", amount, tagID)
	batch.Queue("UPDATE tag_content SET tag_uses = tag_uses + $1 WHERE tag_id = $2", amount, tagID)
	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *Postgres) queryMetas(ctx context.Context, query string, arg int64) ([]models.TagMeta, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []models.TagMeta
	for rows.Next() {
		var m models.TagMeta
		if err := rows.Scan(&m.ID, &m.Name, &m.OwnerID, &m.GuildID, &m.AliasTo, &m.Uses); err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// GetTagsInGuild returns the canonical tags of a guild.
func (s *Postgres) GetTagsInGuild(ctx context.Context, guildID int64) ([]models.TagMeta, error) {
	defer observe(postgresBackend, "list_tags")()
	return s.queryMetas(ctx, `
		SELECT tag_id, tag_name, owner_id, guild_id, alias_to, uses
		FROM tag_meta WHERE guild_id = $1 AND alias_to IS NULL ORDER BY tag_name
	`, guildID)
}

// GetAliases returns the aliases of a tag.
func (s *Postgres) GetAliases(ctx context.Context, tagID int64) ([]models.TagMeta, error) {
	defer observe(postgresBackend, "list_aliases")()
	return s.queryMetas(ctx, `
		SELECT tag_id, tag_name, owner_id, guild_id, alias_to, uses
		FROM tag_meta WHERE alias_to = $1 ORDER BY tag_name
	`, tagID)
}

// Guilds

// EnsureGuild records a guild if it is not known yet.
func (s *Postgres) EnsureGuild(ctx context.Context, guildID int64) error {
	_, err := s.pool.Exec(ctx, "INSERT INTO guilds (guild_id) VALUES ($1) ON CONFLICT (guild_id) DO NOTHING", guildID)
	return err
}

// EnsureGuildConfig creates the default config row of a guild.
func (s *Postgres) EnsureGuildConfig(ctx context.Context, guildID int64) error {
	_, err := s.pool.Exec(ctx, "INSERT INTO guild_configs (guild_id) VALUES ($1) ON CONFLICT (guild_id) DO NOTHING", guildID)
	return err
}

// GetGuildConfig returns a guild's config row, or nil.
func (s *Postgres) GetGuildConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error) {
	defer observe(postgresBackend, "get_guild_config")()

	cfg := &models.GuildConfig{}
	err := s.pool.QueryRow(ctx, `
		SELECT guild_id, prefix, autoresponse_enabled, allow_autoresponse_immunity, autoresponse_functions
		FROM guild_configs WHERE guild_id = $1
	`, guildID).Scan(&cfg.GuildID, &cfg.Prefix, &cfg.AutoresponseEnabled, &cfg.AllowAutoresponseImmunity, &cfg.AutoresponseFunctions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

// GetAutoresponseFunctions returns the stored functions of a guild.
func (s *Postgres) GetAutoresponseFunctions(ctx context.Context, guildID int64) ([]string, bool, error) {
	defer observe(postgresBackend, "get_functions")()

	var functions []string
	err := s.pool.QueryRow(ctx, "SELECT autoresponse_functions FROM guild_configs WHERE guild_id = $1", guildID).Scan(&functions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if functions == nil {
		functions = []string{}
	}
	return functions, true, nil
}

// SetAutoresponseFunctions replaces the stored functions of a guild.
func (s *Postgres) SetAutoresponseFunctions(ctx context.Context, guildID int64, functions []string) error {
	if functions == nil {
		functions = []string{}
	}
	return s.setGuildColumn(ctx, guildID, "autoresponse_functions", functions)
}

// SetAutoresponseEnabled toggles autoresponse processing for a guild.
func (s *Postgres) SetAutoresponseEnabled(ctx context.Context, guildID int64, enabled bool) error {
	return s.setGuildColumn(ctx, guildID, "autoresponse_enabled", enabled)
}

// SetAllowAutoresponseImmunity toggles whether members may change their immunity.
func (s *Postgres) SetAllowAutoresponseImmunity(ctx context.Context, guildID int64, allow bool) error {
	return s.setGuildColumn(ctx, guildID, "allow_autoresponse_immunity", allow)
}

// SetPrefix sets a guild's text command prefix.
func (s *Postgres) SetPrefix(ctx context.Context, guildID int64, prefix string) error {
	return s.setGuildColumn(ctx, guildID, "prefix", prefix)
}

// setGuildColumn upserts one column; column is always a constant.
func (s *Postgres) setGuildColumn(ctx context.Context, guildID int64, column string, value any) error {
	defer observe(postgresBackend, "set_"+column)()

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO guild_configs (guild_id, %[1]s) VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET %[1]s = excluded.%[1]s
	`, column), guildID, value)
	return err
}

// Users

// EnsureUserConfig creates the default config row of a user.
func (s *Postgres) EnsureUserConfig(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, "INSERT INTO user_configs (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", userID)
	return err
}

// GetAutoresponseImmune reports a user's immunity flag. Unknown users are
// not immune.
func (s *Postgres) GetAutoresponseImmune(ctx context.Context, userID int64) (bool, error) {
	var immune bool
	err := s.pool.QueryRow(ctx, "SELECT autoresponse_immune FROM user_configs WHERE user_id = $1", userID).Scan(&immune)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return immune, err
}

// SetAutoresponseImmune sets a user's immunity flag.
func (s *Postgres) SetAutoresponseImmune(ctx context.Context, userID int64, immune bool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_configs (user_id, autoresponse_immune) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET autoresponse_immune = excluded.autoresponse_immune
	`, userID, immune)
	return err
}
