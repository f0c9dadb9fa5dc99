// Package api serves the bot's health and metrics endpoints.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// NewRouter creates the HTTP router. Each entry of checks is pinged by
// /health under its key.
func NewRouter(logger zerolog.Logger, checks map[string]Pinger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(logger))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", Health(checks))

	return r
}
