package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"nickandperla.net/sentinel/internal/models"
)

type memoryTag struct {
	meta    models.TagMeta
	content *models.TagContent
}

// Memory is an in-memory store for testing and the simulator.
type Memory struct {
	mu      sync.RWMutex
	tags    map[int64]*memoryTag
	names   map[int64]map[string]int64 // guild -> name -> tag id
	guilds  map[int64]*models.Guild
	configs map[int64]*models.GuildConfig
	users   map[int64]*models.UserConfig
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tags:    make(map[int64]*memoryTag),
		names:   make(map[int64]map[string]int64),
		guilds:  make(map[int64]*models.Guild),
		configs: make(map[int64]*models.GuildConfig),
		users:   make(map[int64]*models.UserConfig),
	}
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close is a no-op for memory store.
func (m *Memory) Close() error { return nil }

func (m *Memory) lookup(guildID int64, name string) *memoryTag {
	id, ok := m.names[guildID][name]
	if !ok {
		return nil
	}
	return m.tags[id]
}

func (t *memoryTag) entry() *models.TagEntry {
	e := &models.TagEntry{TagMeta: t.meta}
	if t.meta.AliasTo != nil {
		target := *t.meta.AliasTo
		e.AliasTo = &target
	}
	if t.content != nil {
		c := *t.content
		e.Content = &c
	}
	return e
}

func (m *Memory) getTag(guildID int64, name string, allowRedirect bool) *models.TagEntry {
	t := m.lookup(guildID, name)
	if t == nil {
		return nil
	}
	e := t.entry()
	if !e.IsAlias() || !allowRedirect {
		return e
	}
	target, ok := m.tags[*e.AliasTo]
	if !ok {
		return nil
	}
	resolved := target.entry()
	alias := e.TagMeta
	resolved.RedirectedFrom = &alias
	return resolved
}

func (m *Memory) insert(t *memoryTag) bool {
	if _, ok := m.tags[t.meta.ID]; ok {
		return false
	}
	names, ok := m.names[t.meta.GuildID]
	if !ok {
		names = make(map[string]int64)
		m.names[t.meta.GuildID] = names
	}
	if _, ok := names[t.meta.Name]; ok {
		return false
	}
	names[t.meta.Name] = t.meta.ID
	m.tags[t.meta.ID] = t
	return true
}

func (m *Memory) remove(id int64) {
	t, ok := m.tags[id]
	if !ok {
		return
	}
	delete(m.names[t.meta.GuildID], t.meta.Name)
	delete(m.tags, id)
}

// GetTagByName looks up a tag or alias by name.
func (m *Memory) GetTagByName(ctx context.Context, guildID int64, name string, allowRedirect bool) (*models.TagEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTag(guildID, name, allowRedirect), nil
}

// CreateTag stores a new canonical tag.
func (m *Memory) CreateTag(ctx context.Context, name, content string, ownerID, guildID int64) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &memoryTag{
		meta:    models.TagMeta{ID: NewTagID(), Name: name, OwnerID: ownerID, GuildID: guildID},
		content: &models.TagContent{Content: content, CreatedAt: time.Now().UTC()},
	}
	if !m.insert(t) {
		return AlreadyExists, nil
	}
	return Success, nil
}

// CreateAlias stores an alias to a canonical tag of the same guild.
func (m *Memory) CreateAlias(ctx context.Context, name string, targetID, ownerID, guildID int64) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.tags[targetID]
	if !ok || target.meta.GuildID != guildID || target.meta.AliasTo != nil {
		return NotFound, nil
	}
	to := targetID
	t := &memoryTag{meta: models.TagMeta{ID: NewTagID(), Name: name, OwnerID: ownerID, GuildID: guildID, AliasTo: &to}}
	if !m.insert(t) {
		return AlreadyExists, nil
	}
	return Success, nil
}

// resolveOwned finds the canonical tag behind name and checks ownership.
func (m *Memory) resolveOwned(guildID int64, name string, ownerID int64) (*memoryTag, Result) {
	e := m.getTag(guildID, name, true)
	if e == nil {
		return nil, NotFound
	}
	if !permitted(ownerID, e.OwnerID) {
		return nil, MissingPermissions
	}
	return m.tags[e.ID], Success
}

// EditTagByName replaces the content of a tag, following aliases.
func (m *Memory) EditTagByName(ctx context.Context, guildID int64, name, content string, ownerID int64) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, res := m.resolveOwned(guildID, name, ownerID)
	if res != Success {
		return res, nil
	}
	if t.content != nil {
		t.content.Content = content
	}
	return Success, nil
}

// DeleteTagByName deletes a tag and its aliases, following aliases.
func (m *Memory) DeleteTagByName(ctx context.Context, guildID int64, name string, ownerID int64) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, res := m.resolveOwned(guildID, name, ownerID)
	if res != Success {
		return res, nil
	}
	for id, other := range m.tags {
		if other.meta.AliasTo != nil && *other.meta.AliasTo == t.meta.ID {
			m.remove(id)
		}
	}
	m.remove(t.meta.ID)
	return Success, nil
}

// TransferTagOwnership hands a tag to newOwnerID, following aliases.
func (m *Memory) TransferTagOwnership(ctx context.Context, guildID int64, name string, ownerID, newOwnerID int64) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, res := m.resolveOwned(guildID, name, ownerID)
	if res != Success {
		return res, nil
	}
	t.meta.OwnerID = newOwnerID
	return Success, nil
}

// DeleteAlias deletes an alias record.
func (m *Memory) DeleteAlias(ctx context.Context, guildID int64, name string, ownerID int64) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.lookup(guildID, name)
	switch {
	case t == nil:
		return NotFound, nil
	case t.meta.AliasTo == nil:
		return NotAlias, nil
	case !permitted(ownerID, t.meta.OwnerID):
		return MissingPermissions, nil
	}
	m.remove(t.meta.ID)
	return Success, nil
}

// IncrementTagUses bumps the use counters of a tag or alias.
func (m *Memory) IncrementTagUses(ctx context.Context, tagID, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tags[tagID]; ok {
		t.meta.Uses += amount
		if t.content != nil {
			t.content.Uses += amount
		}
	}
	return nil
}

func (m *Memory) metas(keep func(*memoryTag) bool) []models.TagMeta {
	var out []models.TagMeta
	for _, t := range m.tags {
		if keep(t) {
			out = append(out, t.entry().TagMeta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetTagsInGuild returns the canonical tags of a guild.
func (m *Memory) GetTagsInGuild(ctx context.Context, guildID int64) ([]models.TagMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metas(func(t *memoryTag) bool {
		return t.meta.GuildID == guildID && t.meta.AliasTo == nil
	}), nil
}

// GetAliases returns the aliases of a tag.
func (m *Memory) GetAliases(ctx context.Context, tagID int64) ([]models.TagMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metas(func(t *memoryTag) bool {
		return t.meta.AliasTo != nil && *t.meta.AliasTo == tagID
	}), nil
}

// EnsureGuild records a guild if it is not known yet.
func (m *Memory) EnsureGuild(ctx context.Context, guildID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.guilds[guildID]; !ok {
		m.guilds[guildID] = &models.Guild{ID: guildID, JoinedAt: time.Now().UTC()}
	}
	return nil
}

// EnsureGuildConfig creates the default config row of a guild.
func (m *Memory) EnsureGuildConfig(ctx context.Context, guildID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config(guildID)
	return nil
}

// config returns the config of a guild, creating it (caller must hold lock).
func (m *Memory) config(guildID int64) *models.GuildConfig {
	cfg, ok := m.configs[guildID]
	if !ok {
		cfg = models.NewGuildConfig(guildID)
		m.configs[guildID] = cfg
	}
	return cfg
}

// GetGuildConfig returns a copy of a guild's config, or nil.
func (m *Memory) GetGuildConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[guildID]
	if !ok {
		return nil, nil
	}
	c := *cfg
	c.AutoresponseFunctions = append([]string{}, cfg.AutoresponseFunctions...)
	return &c, nil
}

// GetAutoresponseFunctions returns the stored functions of a guild.
func (m *Memory) GetAutoresponseFunctions(ctx context.Context, guildID int64) ([]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[guildID]
	if !ok {
		return nil, false, nil
	}
	return append([]string{}, cfg.AutoresponseFunctions...), true, nil
}

// SetAutoresponseFunctions replaces the stored functions of a guild.
func (m *Memory) SetAutoresponseFunctions(ctx context.Context, guildID int64, functions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config(guildID).AutoresponseFunctions = append([]string{}, functions...)
	return nil
}

// SetAutoresponseEnabled toggles autoresponse processing for a guild.
func (m *Memory) SetAutoresponseEnabled(ctx context.Context, guildID int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config(guildID).AutoresponseEnabled = enabled
	return nil
}

// SetAllowAutoresponseImmunity toggles whether members may change their immunity.
func (m *Memory) SetAllowAutoresponseImmunity(ctx context.Context, guildID int64, allow bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config(guildID).AllowAutoresponseImmunity = allow
	return nil
}

// SetPrefix sets a guild's text command prefix.
func (m *Memory) SetPrefix(ctx context.Context, guildID int64, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config(guildID).Prefix = prefix
	return nil
}

// EnsureUserConfig creates the default config row of a user.
func (m *Memory) EnsureUserConfig(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		m.users[userID] = &models.UserConfig{UserID: userID}
	}
	return nil
}

// GetAutoresponseImmune reports a user's immunity flag.
func (m *Memory) GetAutoresponseImmune(ctx context.Context, userID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	return ok && u.AutoresponseImmune, nil
}

// SetAutoresponseImmune sets a user's immunity flag.
func (m *Memory) SetAutoresponseImmune(ctx context.Context, userID int64, immune bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = &models.UserConfig{UserID: userID, AutoresponseImmune: immune}
	return nil
}
