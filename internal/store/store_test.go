package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const (
	guildA = 111111111111111111
	guildB = 222222222222222222
	owner  = 333333333333333333
	other  = 444444444444444444
)

func newSQLite(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel-test.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newPostgres(t *testing.T) *Postgres {
	t.Helper()
	url := os.Getenv("SENTINEL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SENTINEL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPostgres(ctx, url)
	if err != nil {
		t.Fatalf("Failed to connect to Postgres: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	for _, q := range []string{"DELETE FROM tag_meta", "DELETE FROM guild_configs", "DELETE FROM guilds", "DELETE FROM user_configs"} {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			t.Fatalf("cleanup failed: %v", err)
		}
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
	t.Run("postgres", func(t *testing.T) { fn(t, newPostgres(t)) })
}

func expect(t *testing.T, want Result) func(Result, error) {
	return func(got Result, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

func TestCreateAndGetTag(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		res, err := s.CreateTag(ctx, "rules", "be nice", owner, guildA)
		expect(t, Success)(res, err)

		e, err := s.GetTagByName(ctx, guildA, "rules", true)
		if err != nil {
			t.Fatalf("GetTagByName failed: %v", err)
		}
		if e == nil || e.Content == nil {
			t.Fatalf("expected tag with content, got %+v", e)
		}
		if e.Name != "rules" || e.Content.Content != "be nice" || e.Uses != 0 || e.OwnerID != owner {
			t.Errorf("unexpected entry %+v content %+v", e.TagMeta, e.Content)
		}
		if e.Redirected() {
			t.Error("canonical lookup should not be redirected")
		}
		if e.Content.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}

		res, err = s.CreateTag(ctx, "rules", "again", other, guildA)
		expect(t, AlreadyExists)(res, err)

		// Names are unique per guild only.
		res, err = s.CreateTag(ctx, "rules", "elsewhere", owner, guildB)
		expect(t, Success)(res, err)

		if e, _ := s.GetTagByName(ctx, guildA, "missing", true); e != nil {
			t.Errorf("expected nil for missing tag, got %+v", e)
		}
	})
}

func TestAliasRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		expect(t, Success)(s.CreateTag(ctx, "rules", "be nice", owner, guildA))
		target, _ := s.GetTagByName(ctx, guildA, "rules", true)

		res, err := s.CreateAlias(ctx, "r", target.ID, other, guildA)
		expect(t, Success)(res, err)

		e, err := s.GetTagByName(ctx, guildA, "r", true)
		if err != nil {
			t.Fatalf("GetTagByName failed: %v", err)
		}
		if e == nil || e.Content == nil || e.Content.Content != "be nice" {
			t.Fatalf("expected redirected content, got %+v", e)
		}
		if e.RedirectedFrom == nil || e.RedirectedFrom.Name != "r" {
			t.Errorf("expected redirected_from 'r', got %+v", e.RedirectedFrom)
		}
		if e.Name != "rules" || e.ID != target.ID {
			t.Errorf("expected canonical tag, got %+v", e.TagMeta)
		}

		bare, err := s.GetTagByName(ctx, guildA, "r", false)
		if err != nil {
			t.Fatalf("GetTagByName failed: %v", err)
		}
		if bare == nil || !bare.IsAlias() || bare.Content != nil || *bare.AliasTo != target.ID {
			t.Errorf("expected bare alias record, got %+v", bare)
		}

		// Alias names collide with tag names.
		expect(t, AlreadyExists)(s.CreateAlias(ctx, "rules", target.ID, other, guildA))
		// Alias to an alias is rejected.
		expect(t, NotFound)(s.CreateAlias(ctx, "rr", bare.ID, other, guildA))
		// Unknown and foreign targets are rejected.
		expect(t, NotFound)(s.CreateAlias(ctx, "x", 42, other, guildA))
		expect(t, NotFound)(s.CreateAlias(ctx, "x", target.ID, other, guildB))

		aliases, err := s.GetAliases(ctx, target.ID)
		if err != nil {
			t.Fatalf("GetAliases failed: %v", err)
		}
		if len(aliases) != 1 || aliases[0].Name != "r" {
			t.Errorf("expected one alias 'r', got %+v", aliases)
		}
	})
}

func TestOwnershipChecks(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		expect(t, Success)(s.CreateTag(ctx, "rules", "v1", owner, guildA))
		target, _ := s.GetTagByName(ctx, guildA, "rules", true)
		expect(t, Success)(s.CreateAlias(ctx, "r", target.ID, other, guildA))

		expect(t, MissingPermissions)(s.EditTagByName(ctx, guildA, "rules", "hacked", other))
		expect(t, NotFound)(s.EditTagByName(ctx, guildA, "nope", "x", owner))

		// Editing through the alias edits the target.
		expect(t, Success)(s.EditTagByName(ctx, guildA, "r", "v2", owner))
		e, _ := s.GetTagByName(ctx, guildA, "rules", true)
		if e.Content.Content != "v2" {
			t.Errorf("expected content v2, got %q", e.Content.Content)
		}

		expect(t, MissingPermissions)(s.TransferTagOwnership(ctx, guildA, "rules", other, other))
		expect(t, Success)(s.TransferTagOwnership(ctx, guildA, "rules", owner, other))
		e, _ = s.GetTagByName(ctx, guildA, "rules", true)
		if e.OwnerID != other {
			t.Errorf("expected owner %d, got %d", int64(other), e.OwnerID)
		}

		expect(t, MissingPermissions)(s.DeleteTagByName(ctx, guildA, "rules", owner))
		expect(t, Success)(s.EditTagByName(ctx, guildA, "rules", "v3", AnyOwner))
	})
}

func TestDeleteCascadesToAliases(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		expect(t, Success)(s.CreateTag(ctx, "rules", "v1", owner, guildA))
		target, _ := s.GetTagByName(ctx, guildA, "rules", true)
		expect(t, Success)(s.CreateAlias(ctx, "r", target.ID, owner, guildA))
		expect(t, Success)(s.CreateAlias(ctx, "law", target.ID, owner, guildA))

		// Deleting through an alias deletes the target.
		expect(t, Success)(s.DeleteTagByName(ctx, guildA, "r", owner))
		for _, name := range []string{"rules", "r", "law"} {
			if e, _ := s.GetTagByName(ctx, guildA, name, false); e != nil {
				t.Errorf("expected %q to be gone, got %+v", name, e)
			}
		}
		expect(t, NotFound)(s.DeleteTagByName(ctx, guildA, "rules", owner))

		// The name can be reused.
		expect(t, Success)(s.CreateTag(ctx, "rules", "v2", owner, guildA))
	})
}

func TestDeleteAlias(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		expect(t, Success)(s.CreateTag(ctx, "rules", "v1", owner, guildA))
		target, _ := s.GetTagByName(ctx, guildA, "rules", true)
		expect(t, Success)(s.CreateAlias(ctx, "r", target.ID, other, guildA))

		expect(t, NotAlias)(s.DeleteAlias(ctx, guildA, "rules", owner))
		expect(t, NotFound)(s.DeleteAlias(ctx, guildA, "nope", owner))
		expect(t, MissingPermissions)(s.DeleteAlias(ctx, guildA, "r", owner))
		expect(t, Success)(s.DeleteAlias(ctx, guildA, "r", other))

		if e, _ := s.GetTagByName(ctx, guildA, "rules", true); e == nil {
			t.Error("deleting an alias must keep its target")
		}
	})
}

func TestIncrementTagUses(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		expect(t, Success)(s.CreateTag(ctx, "rules", "v1", owner, guildA))
		target, _ := s.GetTagByName(ctx, guildA, "rules", true)
		expect(t, Success)(s.CreateAlias(ctx, "r", target.ID, owner, guildA))
		alias, _ := s.GetTagByName(ctx, guildA, "r", false)

		if err := s.IncrementTagUses(ctx, target.ID, 1); err != nil {
			t.Fatalf("IncrementTagUses failed: %v", err)
		}
		if err := s.IncrementTagUses(ctx, alias.ID, 1); err != nil {
			t.Fatalf("IncrementTagUses failed: %v", err)
		}
		if err := s.IncrementTagUses(ctx, target.ID, 2); err != nil {
			t.Fatalf("IncrementTagUses failed: %v", err)
		}

		e, _ := s.GetTagByName(ctx, guildA, "r", true)
		if e.Uses != 3 || e.Content.Uses != 3 {
			t.Errorf("expected canonical uses 3, got meta %d content %d", e.Uses, e.Content.Uses)
		}
		if e.RedirectedFrom.Uses != 1 {
			t.Errorf("expected alias uses 1, got %d", e.RedirectedFrom.Uses)
		}
	})
}

func TestGetTagsInGuild(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		expect(t, Success)(s.CreateTag(ctx, "zeta", "z", owner, guildA))
		expect(t, Success)(s.CreateTag(ctx, "alpha", "a", owner, guildA))
		expect(t, Success)(s.CreateTag(ctx, "other", "o", owner, guildB))
		target, _ := s.GetTagByName(ctx, guildA, "alpha", true)
		expect(t, Success)(s.CreateAlias(ctx, "beta", target.ID, owner, guildA))

		tags, err := s.GetTagsInGuild(ctx, guildA)
		if err != nil {
			t.Fatalf("GetTagsInGuild failed: %v", err)
		}
		if len(tags) != 2 || tags[0].Name != "alpha" || tags[1].Name != "zeta" {
			t.Errorf("expected [alpha zeta], got %+v", tags)
		}
	})
}

func TestGuildConfig(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, found, err := s.GetAutoresponseFunctions(ctx, guildA); err != nil || found {
			t.Fatalf("expected unseen guild, got found=%v err=%v", found, err)
		}
		if cfg, err := s.GetGuildConfig(ctx, guildA); err != nil || cfg != nil {
			t.Fatalf("expected nil config, got %+v err=%v", cfg, err)
		}

		if err := s.EnsureGuild(ctx, guildA); err != nil {
			t.Fatalf("EnsureGuild failed: %v", err)
		}
		if err := s.EnsureGuild(ctx, guildA); err != nil {
			t.Fatalf("EnsureGuild is not idempotent: %v", err)
		}
		if err := s.EnsureGuildConfig(ctx, guildA); err != nil {
			t.Fatalf("EnsureGuildConfig failed: %v", err)
		}
		if err := s.EnsureGuildConfig(ctx, guildA); err != nil {
			t.Fatalf("EnsureGuildConfig is not idempotent: %v", err)
		}

		fns, found, err := s.GetAutoresponseFunctions(ctx, guildA)
		if err != nil || !found || len(fns) != 0 {
			t.Fatalf("expected empty function list, got %v found=%v err=%v", fns, found, err)
		}

		cfg, err := s.GetGuildConfig(ctx, guildA)
		if err != nil || cfg == nil {
			t.Fatalf("GetGuildConfig failed: %v", err)
		}
		if cfg.Prefix != "s!" || !cfg.AutoresponseEnabled || !cfg.AllowAutoresponseImmunity {
			t.Errorf("unexpected defaults %+v", cfg)
		}

		want := []string{"ping;if(message_content == \"ping\") reply pong", "bye;reply bye\ndelete"}
		if err := s.SetAutoresponseFunctions(ctx, guildA, want); err != nil {
			t.Fatalf("SetAutoresponseFunctions failed: %v", err)
		}
		fns, _, _ = s.GetAutoresponseFunctions(ctx, guildA)
		if len(fns) != 2 || fns[0] != want[0] || fns[1] != want[1] {
			t.Errorf("expected %q, got %q", want, fns)
		}

		if err := s.SetAutoresponseEnabled(ctx, guildA, false); err != nil {
			t.Fatalf("SetAutoresponseEnabled failed: %v", err)
		}
		if err := s.SetAllowAutoresponseImmunity(ctx, guildA, false); err != nil {
			t.Fatalf("SetAllowAutoresponseImmunity failed: %v", err)
		}
		if err := s.SetPrefix(ctx, guildA, "!"); err != nil {
			t.Fatalf("SetPrefix failed: %v", err)
		}
		cfg, _ = s.GetGuildConfig(ctx, guildA)
		if cfg.AutoresponseEnabled || cfg.AllowAutoresponseImmunity || cfg.Prefix != "!" || len(cfg.AutoresponseFunctions) != 2 {
			t.Errorf("unexpected config %+v", cfg)
		}
	})
}

func TestUserConfig(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if immune, err := s.GetAutoresponseImmune(ctx, owner); err != nil || immune {
			t.Fatalf("expected unknown user not immune, got %v err=%v", immune, err)
		}
		if err := s.EnsureUserConfig(ctx, owner); err != nil {
			t.Fatalf("EnsureUserConfig failed: %v", err)
		}
		if err := s.SetAutoresponseImmune(ctx, owner, true); err != nil {
			t.Fatalf("SetAutoresponseImmune failed: %v", err)
		}
		if err := s.EnsureUserConfig(ctx, owner); err != nil {
			t.Fatalf("EnsureUserConfig failed: %v", err)
		}
		if immune, _ := s.GetAutoresponseImmune(ctx, owner); !immune {
			t.Error("expected immunity to survive EnsureUserConfig")
		}
	})
}

func TestSQLiteSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	version, err := s.GetMetadata("schema_version")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("expected schema version %s, got %q", SchemaVersion, version)
	}
	expect(t, Success)(s.CreateTag(context.Background(), "keep", "me", owner, guildA))
	s.Close()

	// Reopening keeps the data.
	s, err = NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to reopen SQLite store: %v", err)
	}
	defer s.Close()
	if e, _ := s.GetTagByName(context.Background(), guildA, "keep", true); e == nil {
		t.Error("expected tag to persist across reopen")
	}
}

func TestNewTagID(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := NewTagID()
		if id <= 0 {
			t.Fatalf("expected positive id, got %d", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}
