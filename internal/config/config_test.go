// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ENV", "DISCORD_TOKEN", "DATABASE_URL", "SQLITE_PATH", "REDIS_URL", "HTTP_ADDR", "CACHE_TTL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Errorf("expected development by default, got %q", cfg.Env)
	}
	if cfg.SQLitePath != "sentinel.db" || cfg.HTTPAddr != ":8080" || cfg.CacheTTL != time.Minute {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Level() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", cfg.Level())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected development config without a token to be valid, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://localhost/sentinel")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.Level() != zerolog.DebugLevel || cfg.DatabaseURL == "" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected production without DISCORD_TOKEN to be rejected")
	}
	cfg.DiscordToken = "token"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadBadTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected an invalid CACHE_TTL to be rejected")
	}
}
