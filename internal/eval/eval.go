package eval

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"nickandperla.net/sentinel/internal/expr"
	"nickandperla.net/sentinel/internal/metrics"
	"nickandperla.net/sentinel/internal/platform"
)

// Action outcomes reported to metrics.
const (
	outcomeDone    = "done"
	outcomeSkipped = "skipped"
	outcomeDenied  = "denied"
	outcomeFailed  = "failed"
	outcomeMatched = "matched"
	outcomeMissed  = "missed"
)

// Interpreter runs parsed scripts against a message.
type Interpreter struct {
	messenger platform.Messenger
	logger    zerolog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMessenger sets the messaging collaborator.
func WithMessenger(m platform.Messenger) Option {
	return func(in *Interpreter) { in.messenger = m }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(in *Interpreter) { in.logger = l }
}

// New creates a new Interpreter with the given options.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Messenger returns the configured messaging collaborator.
func (in *Interpreter) Messenger() platform.Messenger {
	return in.messenger
}

// Run executes every action of prog in order. Permission failures are
// swallowed; any other failure stops the run and is returned.
func (in *Interpreter) Run(ctx context.Context, prog *Program, msg *platform.Message, ns *Namespace) error {
	for _, a := range prog.Actions {
		if err := in.Exec(ctx, a, msg, ns); err != nil {
			return err
		}
	}
	return nil
}

// RunScript parses and runs script.
func (in *Interpreter) RunScript(ctx context.Context, script string, msg *platform.Message, ns *Namespace) error {
	prog, err := Parse(script)
	if err != nil {
		return err
	}
	return in.Run(ctx, prog, msg, ns)
}

// Exec dispatches one action. A matched If re-enters Exec with its
// statement.
func (in *Interpreter) Exec(ctx context.Context, a expr.Action, msg *platform.Message, ns *Namespace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch a := a.(type) {
	case expr.Send:
		return in.send(ctx, a, ns)
	case expr.Reply:
		return in.reply(ctx, a, msg, ns)
	case expr.Delete:
		return in.delete(ctx, msg)
	case expr.If:
		if !Test(a, ns) {
			in.count(a, outcomeMissed)
			return nil
		}
		in.count(a, outcomeMatched)
		if a.Then == nil {
			return nil
		}
		return in.Exec(ctx, a.Then, msg, ns)
	case expr.Invalid:
		in.logger.Debug().Str("line", a.Text).Str("reason", a.Reason).Msg("ignoring malformed line")
		in.count(a, outcomeSkipped)
	}
	return nil
}

func (in *Interpreter) send(ctx context.Context, a expr.Send, ns *Namespace) error {
	id, err := strconv.ParseInt(ns.Expand(a.Channel), 10, 64)
	if err != nil {
		in.logger.Debug().Str("channel", a.Channel).Msg("send: invalid channel id")
		in.count(a, outcomeSkipped)
		return nil
	}
	text := ns.Expand(a.Text)
	ch, ok := in.channel(id)
	if !ok || !ch.Sendable() || text == "" {
		in.count(a, outcomeSkipped)
		return nil
	}
	return in.result(a, in.messenger.Send(ctx, id, text))
}

func (in *Interpreter) reply(ctx context.Context, a expr.Reply, msg *platform.Message, ns *Namespace) error {
	text := ns.Expand(a.Text)
	ch, ok := in.channel(msg.ChannelID)
	if !ok || !ch.Sendable() || text == "" {
		in.count(a, outcomeSkipped)
		return nil
	}
	return in.result(a, in.messenger.Reply(ctx, msg, text))
}

func (in *Interpreter) delete(ctx context.Context, msg *platform.Message) error {
	a := expr.Delete{}
	if in.messenger == nil {
		in.count(a, outcomeSkipped)
		return nil
	}
	return in.result(a, in.messenger.Delete(ctx, msg))
}

func (in *Interpreter) channel(id int64) (*platform.Channel, bool) {
	if in.messenger == nil {
		return nil, false
	}
	return in.messenger.Channel(id)
}

func (in *Interpreter) result(a expr.Action, err error) error {
	switch {
	case err == nil:
		in.count(a, outcomeDone)
		return nil
	case errors.Is(err, platform.ErrPermission):
		in.logger.Debug().Err(err).Str("verb", a.Verb().String()).Msg("permission denied")
		metrics.PermissionDenied.WithLabelValues(a.Verb().String()).Inc()
		in.count(a, outcomeDenied)
		return nil
	}
	in.count(a, outcomeFailed)
	return fmt.Errorf("%s: %w", a.Verb(), err)
}

func (in *Interpreter) count(a expr.Action, outcome string) {
	metrics.AutoresponseActions.WithLabelValues(a.Verb().String(), outcome).Inc()
}
