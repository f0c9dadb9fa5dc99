package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nickandperla.net/sentinel/internal/api"
	"nickandperla.net/sentinel/internal/platform"
	"nickandperla.net/sentinel/pkg/sentinel"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve health and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}
}

func (a *app) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if a.cfg.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}

	discord, err := platform.NewDiscord(a.cfg.DiscordToken)
	if err != nil {
		return err
	}
	rt, err := a.runtime(ctx, sentinel.WithMessenger(discord))
	if err != nil {
		return err
	}
	defer a.close()

	discord.OnMessage(func(msg *platform.Message) {
		rt.Dispatch(msg)
	})
	discord.OnGuildJoin(func(guildID int64) {
		if err := rt.HandleGuildJoin(ctx, guildID); err != nil {
			a.logger.Error().Err(err).Int64("guild_id", guildID).Msg("guild provisioning failed")
		}
	})

	if err := discord.Open(); err != nil {
		rt.Close()
		return err
	}
	a.logger.Info().Str("env", a.cfg.Env).Msg("connected to Discord")

	checks := map[string]api.Pinger{"store": rt}
	if a.redis != nil {
		client := a.redis
		checks["redis"] = api.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	srv := &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      api.NewRouter(a.logger, checks),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("serving health and metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down...")

	if err := discord.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("gateway close failed")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("http server forced to shutdown")
	}
	if err := rt.Close(); err != nil {
		return err
	}

	a.logger.Info().Msg("stopped")
	return nil
}
