// Package sentinel wires the autoresponse engine and tag service into a
// single runtime.
package sentinel

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"nickandperla.net/sentinel/internal/autoresponse"
	"nickandperla.net/sentinel/internal/cache"
	"nickandperla.net/sentinel/internal/eval"
	"nickandperla.net/sentinel/internal/platform"
	"nickandperla.net/sentinel/internal/store"
	"nickandperla.net/sentinel/internal/tags"
)

// Runtime handles gateway events for every guild.
type Runtime struct {
	store     store.Store
	messenger platform.Messenger
	history   platform.History
	logger    zerolog.Logger
	functions cache.Cache[int64, cache.FunctionList]
	cacheTTL  time.Duration
	drain     time.Duration
	err       error

	guilds     *cache.GuildStore
	processor  *autoresponse.Processor
	dispatcher *autoresponse.Dispatcher
	manager    *autoresponse.Manager
	tags       *tags.Service
}

// New creates a runtime with the given options. Without WithStore the
// runtime keeps everything in memory; without WithMessenger side effects are
// printed to stdout.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		logger:   zerolog.Nop(),
		cacheTTL: time.Minute,
		drain:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.err != nil {
		if r.store != nil {
			r.store.Close()
		}
		return nil, r.err
	}

	if r.store == nil {
		r.store = store.NewMemory()
	}
	if r.messenger == nil {
		r.messenger = platform.NewConsole(os.Stdout)
	}
	if r.history == nil {
		if h, ok := r.messenger.(platform.History); ok {
			r.history = h
		}
	}
	if r.functions == nil {
		r.functions = cache.NewMemory[int64, cache.FunctionList]()
	}

	r.guilds = cache.NewGuildStore(r.store, r.functions, r.cacheTTL)
	r.processor = autoresponse.NewProcessor(r.guilds, r.store,
		autoresponse.WithInterpreter(eval.New(
			eval.WithMessenger(r.messenger),
			eval.WithLogger(r.logger),
		)),
		autoresponse.WithHistory(r.history),
		autoresponse.WithLogger(r.logger),
	)
	r.dispatcher = autoresponse.NewDispatcher(r.processor, r.logger)
	r.manager = autoresponse.NewManager(r.guilds, r.store)
	r.tags = tags.NewService(r.store)
	return r, nil
}

// HandleMessage runs the guild's autoresponse functions against msg and
// waits for them to finish.
func (r *Runtime) HandleMessage(ctx context.Context, msg *platform.Message) (autoresponse.Outcome, error) {
	return r.processor.Process(ctx, msg)
}

// Dispatch runs the guild's autoresponse functions against msg in the
// background. It returns false after Close.
func (r *Runtime) Dispatch(msg *platform.Message) bool {
	return r.dispatcher.Dispatch(msg)
}

// HandleGuildJoin provisions a guild the bot joined.
func (r *Runtime) HandleGuildJoin(ctx context.Context, guildID int64) error {
	return r.processor.Provision(ctx, guildID)
}

// Manager returns the autoresponse management surface.
func (r *Runtime) Manager() *autoresponse.Manager { return r.manager }

// Tags returns the tag service.
func (r *Runtime) Tags() *tags.Service { return r.tags }

// Store returns the underlying store.
func (r *Runtime) Store() store.Store { return r.store }

// Messenger returns the messaging collaborator.
func (r *Runtime) Messenger() platform.Messenger { return r.messenger }

// Close waits for dispatched messages and releases the store.
func (r *Runtime) Close() error {
	r.dispatcher.Shutdown(r.drain)
	return r.store.Close()
}

// Ping checks the store.
func (r *Runtime) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
