// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package autoresponse

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"nickandperla.net/sentinel/internal/cache"
	"nickandperla.net/sentinel/internal/eval"
	"nickandperla.net/sentinel/internal/metrics"
	"nickandperla.net/sentinel/internal/platform"
	"nickandperla.net/sentinel/internal/store"
)

// Outcome says how a message was handled.
type Outcome int

const (
	Ran Outcome = iota
	NotInGuild
	UnseenGuild
	Immune
	Disabled
)

// String returns the string representation of an Outcome.
func (o Outcome) String() string {
	switch o {
	case Ran:
		return "ran"
	case NotInGuild:
		return "not_in_guild"
	case UnseenGuild:
		return "unseen_guild"
	case Immune:
		return "immune"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// DefaultProgramTTL is how long a parsed script stays cached.
const DefaultProgramTTL = 10 * time.Minute

// Processor runs a guild's autoresponse functions for each message.
type Processor struct {
	guilds     store.GuildStore
	users      store.UserStore
	interp     *eval.Interpreter
	history    platform.History
	programs   cache.Cache[string, *eval.Program]
	programTTL time.Duration
	lastSweep  atomic.Int64 // Unix nanoseconds
	logger     zerolog.Logger
}

type sweeper interface {
	Sweep()
}

// Option configures a Processor.
type Option func(*Processor)

// WithInterpreter sets the script interpreter.
func WithInterpreter(in *eval.Interpreter) Option {
	return func(p *Processor) { p.interp = in }
}

// WithHistory sets the history reader used for last_ placeholders.
func WithHistory(h platform.History) Option {
	return func(p *Processor) { p.history = h }
}

// WithProgramCache sets the cache of parsed scripts.
func WithProgramCache(c cache.Cache[string, *eval.Program]) Option {
	return func(p *Processor) { p.programs = c }
}

// WithProgramTTL sets how long parsed scripts stay cached.
func WithProgramTTL(ttl time.Duration) Option {
	return func(p *Processor) { p.programTTL = ttl }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor creates a processor reading from guilds and users.
func NewProcessor(guilds store.GuildStore, users store.UserStore, opts ...Option) *Processor {
	p := &Processor{
		guilds:   guilds,
		users:    users,
		programs:   cache.NewMemory[string, *eval.Program](),
		programTTL: DefaultProgramTTL,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.interp == nil {
		p.interp = eval.New(eval.WithLogger(p.logger))
	}
	return p
}

// Provision records a guild and its default config.
func (p *Processor) Provision(ctx context.Context, guildID int64) error {
	if err := p.guilds.EnsureGuild(ctx, guildID); err != nil {
		return fmt.Errorf("ensure guild: %w", err)
	}
	if err := p.guilds.EnsureGuildConfig(ctx, guildID); err != nil {
		return fmt.Errorf("ensure guild config: %w", err)
	}
	return nil
}

// Process runs every stored function of the message's guild, in order,
// against msg. The first failing function stops processing.
func (p *Processor) Process(ctx context.Context, msg *platform.Message) (Outcome, error) {
	outcome, err := p.process(ctx, msg)
	result := outcome.String()
	if err != nil {
		result = "error"
	}
	metrics.MessagesProcessed.WithLabelValues(result).Inc()
	return outcome, err
}

func (p *Processor) process(ctx context.Context, msg *platform.Message) (Outcome, error) {
	if msg.GuildID == 0 {
		return NotInGuild, nil
	}

	stored, found, err := p.guilds.GetAutoresponseFunctions(ctx, msg.GuildID)
	if err != nil {
		return Ran, fmt.Errorf("load functions: %w", err)
	}
	if !found {
		p.logger.Info().Int64("guild_id", msg.GuildID).Msg("provisioning unseen guild")
		return UnseenGuild, p.Provision(ctx, msg.GuildID)
	}

	if err := p.users.EnsureUserConfig(ctx, msg.Author.ID); err != nil {
		return Ran, fmt.Errorf("ensure user config: %w", err)
	}
	immune, err := p.users.GetAutoresponseImmune(ctx, msg.Author.ID)
	if err != nil {
		return Ran, fmt.Errorf("load immunity: %w", err)
	}
	if immune {
		return Immune, nil
	}
	if len(stored) == 0 {
		return Ran, nil
	}

	cfg, err := p.guilds.GetGuildConfig(ctx, msg.GuildID)
	if err != nil {
		return Ran, fmt.Errorf("load guild config: %w", err)
	}
	if cfg != nil && !cfg.AutoresponseEnabled {
		return Disabled, nil
	}

	start := time.Now()
	defer func() { metrics.ScriptDuration.Observe(time.Since(start).Seconds()) }()

	p.sweep()
	functions := make([]Function, 0, len(stored))
	programs := make([]*eval.Program, 0, len(stored))
	lookback := false
	for _, s := range stored {
		fn, ok := ParseFunction(s)
		if !ok {
			p.logger.Warn().Int64("guild_id", msg.GuildID).Str("function", s).Msg("skipping stored function without a name")
			continue
		}
		prog, err := p.compile(ctx, fn.Script)
		if err != nil {
			return Ran, fmt.Errorf("parse %q: %w", fn.Name, err)
		}
		lookback = lookback || prog.Mentions(eval.LastPrefix)
		functions = append(functions, fn)
		programs = append(programs, prog)
	}

	ns, err := eval.BuildContext(ctx, msg, p.history, lookback)
	if err != nil {
		return Ran, err
	}

	for i, prog := range programs {
		if err := p.interp.Run(ctx, prog, msg, ns); err != nil {
			return Ran, fmt.Errorf("function %q: %w", functions[i].Name, err)
		}
	}
	return Ran, nil
}

// compile parses script, reusing a cached parse of identical text.
func (p *Processor) compile(ctx context.Context, script string) (*eval.Program, error) {
	if prog, ok, err := p.programs.Get(ctx, script); err == nil && ok {
		return prog, nil
	}
	prog, err := eval.Parse(script)
	if err != nil {
		return nil, err
	}
	_ = p.programs.Set(ctx, script, prog, p.programTTL)
	return prog, nil
}

// sweep drops expired programs at most once per TTL, so scripts that were
// edited or removed do not stay cached.
func (p *Processor) sweep() {
	s, ok := p.programs.(sweeper)
	if !ok || p.programTTL <= 0 {
		return
	}
	now := time.Now().UnixNano()
	last := p.lastSweep.Load()
	if now-last < int64(p.programTTL) || !p.lastSweep.CompareAndSwap(last, now) {
		return
	}
	s.Sweep()
}
