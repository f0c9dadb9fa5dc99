package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nickandperla.net/sentinel/internal/cache"
	"nickandperla.net/sentinel/internal/config"
	"nickandperla.net/sentinel/internal/platform"
	"nickandperla.net/sentinel/internal/store"
	"nickandperla.net/sentinel/pkg/sentinel"
)

// app holds state shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	sqlitePath  string
	databaseURL string
	logLevel    string

	redis *redis.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "Discord bot with scripted autoresponses and tags",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.sqlitePath, "db", "", "SQLite database path (overrides SQLITE_PATH)")
	flags.StringVar(&a.databaseURL, "database-url", "", "Postgres URL (overrides DATABASE_URL)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newRunCmd(a),
		newMigrateCmd(a),
		newAutoresponseCmd(a),
		newTagCmd(a),
		newSimulateCmd(a),
	)
	return root
}

// load reads configuration, applies flag overrides and builds the logger.
func (a *app) load(logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.sqlitePath != "" {
		cfg.SQLitePath = a.sqlitePath
	}
	if a.databaseURL != "" {
		cfg.DatabaseURL = a.databaseURL
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg
	a.logger = newLogger(cfg, logOut)
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(w).
			With().
			Timestamp().
			Logger()
	}
	return logger.Level(cfg.Level())
}

// openStore opens Postgres when a database URL is configured and SQLite
// otherwise.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	if a.cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		a.logger.Debug().Msg("connected to PostgreSQL")
		return pg, nil
	}
	s, err := store.NewSQLite(a.cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.cfg.SQLitePath, err)
	}
	a.logger.Debug().Str("path", a.cfg.SQLitePath).Msg("opened SQLite database")
	return s, nil
}

// runtime opens the configured store and cache and builds a runtime.
func (a *app) runtime(ctx context.Context, opts ...sentinel.Option) (*sentinel.Runtime, error) {
	s, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	base := []sentinel.Option{
		sentinel.WithStore(s),
		sentinel.WithLogger(a.logger),
		sentinel.WithCacheTTL(a.cfg.CacheTTL),
	}
	if a.cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, a.cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		a.redis = client
		base = append(base, sentinel.WithRedisCache(client))
		a.logger.Debug().Msg("connected to Redis")
	}
	return sentinel.New(append(base, opts...)...)
}

// close releases connections opened by runtime.
func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
		a.redis = nil
	}
}

func withRuntime(a *app, cmd *cobra.Command, fn func(ctx context.Context, rt *sentinel.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := a.runtime(ctx, sentinel.WithMessenger(platform.NewConsole(io.Discard)))
	if err != nil {
		return err
	}
	defer a.close()
	defer rt.Close()
	return fn(ctx, rt)
}
