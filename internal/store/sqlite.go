package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"nickandperla.net/sentinel/internal/models"
)

const sqliteBackend = "sqlite"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// querier is implemented by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLite opens the database at path and applies the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLite{db: db}

	// Check/set schema version (use unlocked versions since we're in init)
	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Tags

const sqliteTagSelect = `
	SELECT m.tag_id, m.tag_name, m.owner_id, m.guild_id, m.alias_to, m.uses,
	       c.tag_content, c.tag_uses, c.created_at
	FROM tag_meta m LEFT JOIN tag_content c ON c.tag_id = m.tag_id
`

func scanSQLiteEntry(row *sql.Row) (*models.TagEntry, error) {
	var (
		e       models.TagEntry
		aliasTo sql.NullInt64
		content sql.NullString
		uses    sql.NullInt64
		created sql.NullTime
	)
	err := row.Scan(&e.ID, &e.Name, &e.OwnerID, &e.GuildID, &aliasTo, &e.Uses, &content, &uses, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if aliasTo.Valid {
		id := aliasTo.Int64
		e.AliasTo = &id
	}
	if content.Valid {
		e.Content = &models.TagContent{Content: content.String, Uses: uses.Int64, CreatedAt: created.Time}
	}
	return &e, nil
}

func (s *SQLite) getTag(ctx context.Context, q querier, guildID int64, name string, allowRedirect bool) (*models.TagEntry, error) {
	e, err := scanSQLiteEntry(q.QueryRowContext(ctx, sqliteTagSelect+"WHERE m.guild_id = ? AND m.tag_name = ?", guildID, name))
	if err != nil || e == nil || !e.IsAlias() || !allowRedirect {
		return e, err
	}
	target, err := scanSQLiteEntry(q.QueryRowContext(ctx, sqliteTagSelect+"WHERE m.tag_id = ?", *e.AliasTo))
	if err != nil || target == nil {
		return nil, err
	}
	alias := e.TagMeta
	target.RedirectedFrom = &alias
	return target, nil
}

// GetTagByName looks up a tag or alias by name.
func (s *SQLite) GetTagByName(ctx context.Context, guildID int64, name string, allowRedirect bool) (*models.TagEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "get_tag")()
	return s.getTag(ctx, s.db, guildID, name, allowRedirect)
}

// CreateTag inserts the meta and content rows of a new tag in one transaction.
func (s *SQLite) CreateTag(ctx context.Context, name, content string, ownerID, guildID int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "create_tag")()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id := NewTagID()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO tag_meta (tag_id, tag_name, owner_id, guild_id) VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, id, name, ownerID, guildID)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return AlreadyExists, err
	}

	res, err = tx.ExecContext(ctx, `
		INSERT INTO tag_content (tag_id, tag_content, created_at) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, id, content, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return AlreadyExists, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return Success, nil
}

// CreateAlias inserts a meta-only row redirecting to targetID.
func (s *SQLite) CreateAlias(ctx context.Context, name string, targetID, ownerID, guildID int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "create_alias")()

	var aliasTo sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT alias_to FROM tag_meta WHERE tag_id = ? AND guild_id = ?", targetID, guildID).Scan(&aliasTo)
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound, nil
	}
	if err != nil {
		return 0, err
	}
	if aliasTo.Valid {
		return NotFound, nil
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tag_meta (tag_id, tag_name, owner_id, guild_id, alias_to) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, NewTagID(), name, ownerID, guildID, targetID)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return AlreadyExists, err
	}
	return Success, nil
}

// EditTagByName replaces the content of a tag, following aliases.
func (s *SQLite) EditTagByName(ctx context.Context, guildID int64, name, content string, ownerID int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "edit_tag")()

	e, err := s.getTag(ctx, s.db, guildID, name, true)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return NotFound, nil
	}
	if !permitted(ownerID, e.OwnerID) {
		return MissingPermissions, nil
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE tag_content SET tag_content = ? WHERE tag_id = ?", content, e.ID); err != nil {
		return 0, err
	}
	return Success, nil
}

// DeleteTagByName deletes a tag and its aliases, following aliases.
func (s *SQLite) DeleteTagByName(ctx context.Context, guildID int64, name string, ownerID int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "delete_tag")()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

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
	for _, q := range []string{
		"DELETE FROM tag_meta WHERE alias_to = ?",
		"DELETE FROM tag_content WHERE tag_id = ?",
		"DELETE FROM tag_meta WHERE tag_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, e.ID); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return Success, nil
}

// TransferTagOwnership hands a tag to newOwnerID, following aliases.
func (s *SQLite) TransferTagOwnership(ctx context.Context, guildID int64, name string, ownerID, newOwnerID int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "transfer_tag")()

	e, err := s.getTag(ctx, s.db, guildID, name, true)
	if err != nil {
		return 0, err
	}
	if e == nil {
		return NotFound, nil
	}
	if !permitted(ownerID, e.OwnerID) {
		return MissingPermissions, nil
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE tag_meta SET owner_id = ? WHERE tag_id = ?", newOwnerID, e.ID); err != nil {
		return 0, err
	}
	return Success, nil
}

// DeleteAlias deletes an alias record. The named record must be an alias.
func (s *SQLite) DeleteAlias(ctx context.Context, guildID int64, name string, ownerID int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "delete_alias")()

	e, err := s.getTag(ctx, s.db, guildID, name, false)
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
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tag_meta WHERE tag_id = ?", e.ID); err != nil {
		return 0, err
	}
	return Success, nil
}

// IncrementTagUses bumps the use counters of a tag or alias.
func (s *SQLite) IncrementTagUses(ctx context.Context, tagID, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "increment_uses")()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "UPDATE tag_meta SET uses = uses + ? WHERE tag_id = ?", amount, tagID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tag_content SET tag_uses = tag_uses + ? WHERE tag_id = ?", amount, tagID); err != nil {
		return err
	}
	return tx.Commit()
}

func scanSQLiteMetas(rows *sql.Rows) ([]models.TagMeta, error) {
	defer rows.Close()
	var metas []models.TagMeta
	for rows.Next() {
		var (
			m       models.TagMeta
			aliasTo sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.OwnerID, &m.GuildID, &aliasTo, &m.Uses); err != nil {
			return nil, err
		}
		if aliasTo.Valid {
			id := aliasTo.Int64
			m.AliasTo = &id
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// GetTagsInGuild returns the canonical tags of a guild.
func (s *SQLite) GetTagsInGuild(ctx context.Context, guildID int64) ([]models.TagMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "list_tags")()

	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id, tag_name, owner_id, guild_id, alias_to, uses
		FROM tag_meta WHERE guild_id = ? AND alias_to IS NULL ORDER BY tag_name
	`, guildID)
	if err != nil {
		return nil, err
	}
	return scanSQLiteMetas(rows)
}

// GetAliases returns the aliases of a tag.
func (s *SQLite) GetAliases(ctx context.Context, tagID int64) ([]models.TagMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "list_aliases")()

	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id, tag_name, owner_id, guild_id, alias_to, uses
		FROM tag_meta WHERE alias_to = ? ORDER BY tag_name
	`, tagID)
	if err != nil {
		return nil, err
	}
	return scanSQLiteMetas(rows)
}

// Guilds

// EnsureGuild records a guild if it is not known yet.
func (s *SQLite) EnsureGuild(ctx context.Context, guildID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "INSERT INTO guilds (guild_id) VALUES (?) ON CONFLICT DO NOTHING", guildID)
	return err
}

// EnsureGuildConfig creates the default config row of a guild.
func (s *SQLite) EnsureGuildConfig(ctx context.Context, guildID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "INSERT INTO guild_configs (guild_id) VALUES (?) ON CONFLICT DO NOTHING", guildID)
	return err
}

// GetGuildConfig returns a guild's config row, or nil.
func (s *SQLite) GetGuildConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "get_guild_config")()

	var (
		cfg       models.GuildConfig
		functions string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT guild_id, prefix, autoresponse_enabled, allow_autoresponse_immunity, autoresponse_functions
		FROM guild_configs WHERE guild_id = ?
	`, guildID).Scan(&cfg.GuildID, &cfg.Prefix, &cfg.AutoresponseEnabled, &cfg.AllowAutoresponseImmunity, &functions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cfg.AutoresponseFunctions, err = decodeFunctions(functions); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetAutoresponseFunctions returns the stored functions of a guild.
func (s *SQLite) GetAutoresponseFunctions(ctx context.Context, guildID int64) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "get_functions")()

	var functions string
	err := s.db.QueryRowContext(ctx, "SELECT autoresponse_functions FROM guild_configs WHERE guild_id = ?", guildID).Scan(&functions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	decoded, err := decodeFunctions(functions)
	if err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

// SetAutoresponseFunctions replaces the stored functions of a guild.
func (s *SQLite) SetAutoresponseFunctions(ctx context.Context, guildID int64, functions []string) error {
	if functions == nil {
		functions = []string{}
	}
	data, err := json.Marshal(functions)
	if err != nil {
		return err
	}
	return s.setGuildColumn(ctx, guildID, "autoresponse_functions", string(data))
}

// SetAutoresponseEnabled toggles autoresponse processing for a guild.
func (s *SQLite) SetAutoresponseEnabled(ctx context.Context, guildID int64, enabled bool) error {
	return s.setGuildColumn(ctx, guildID, "autoresponse_enabled", enabled)
}

// SetAllowAutoresponseImmunity toggles whether members may change their immunity.
func (s *SQLite) SetAllowAutoresponseImmunity(ctx context.Context, guildID int64, allow bool) error {
	return s.setGuildColumn(ctx, guildID, "allow_autoresponse_immunity", allow)
}

// SetPrefix sets a guild's text command prefix.
func (s *SQLite) SetPrefix(ctx context.Context, guildID int64, prefix string) error {
	return s.setGuildColumn(ctx, guildID, "prefix", prefix)
}

// setGuildColumn upserts one column; column is always a constant.
func (s *SQLite) setGuildColumn(ctx context.Context, guildID int64, column string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer observe(sqliteBackend, "set_"+column)()

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO guild_configs (guild_id, %[1]s) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET %[1]s = excluded.%[1]s
	`, column), guildID, value)
	return err
}

// Users

// EnsureUserConfig creates the default config row of a user.
func (s *SQLite) EnsureUserConfig(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "INSERT INTO user_configs (user_id) VALUES (?) ON CONFLICT DO NOTHING", userID)
	return err
}

// GetAutoresponseImmune reports a user's immunity flag. Unknown users are
// not immune.
func (s *SQLite) GetAutoresponseImmune(ctx context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var immune bool
	err := s.db.QueryRowContext(ctx, "SELECT autoresponse_immune FROM user_configs WHERE user_id = ?", userID).Scan(&immune)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return immune, err
}

// SetAutoresponseImmune sets a user's immunity flag.
func (s *SQLite) SetAutoresponseImmune(ctx context.Context, userID int64, immune bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_configs (user_id, autoresponse_immune) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET autoresponse_immune = excluded.autoresponse_immune
	`, userID, immune)
	return err
}

func decodeFunctions(data string) ([]string, error) {
	functions := []string{}
	if data == "" {
		return functions, nil
	}
	if err := json.Unmarshal([]byte(data), &functions); err != nil {
		return nil, fmt.Errorf("decode autoresponse functions: %w", err)
	}
	return functions, nil
}
