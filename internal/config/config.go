// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the bot.
type Config struct {
	Env          string
	DiscordToken string
	DatabaseURL  string // Postgres; SQLitePath is used when empty
	SQLitePath   string
	RedisURL     string // Optional function list cache
	HTTPAddr     string
	CacheTTL     time.Duration
	LogLevel     string
}

// Load reads configuration from environment variables, loading a .env file
// first if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:          getEnv("ENV", "development"),
		DiscordToken: os.Getenv("DISCORD_TOKEN"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		SQLitePath:   getEnv("SQLITE_PATH", "sentinel.db"),
		RedisURL:     os.Getenv("REDIS_URL"),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl
	return cfg, nil
}

// Validate checks the settings needed to connect to Discord.
func (c *Config) Validate() error {
	if c.DiscordToken == "" && !c.IsDevelopment() {
		return errors.New("DISCORD_TOKEN is required in production")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
