// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package autoresponse

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nickandperla.net/sentinel/internal/platform"
)

// Dispatcher processes each incoming message on its own goroutine.
type Dispatcher struct {
	processor *Processor
	logger    zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher for p.
func NewDispatcher(p *Processor, logger zerolog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		processor: p,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Dispatch starts processing msg. It returns false once the dispatcher is
// shut down.
func (d *Dispatcher) Dispatch(msg *platform.Message) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		log := d.logger.With().
			Str("run_id", uuid.NewString()).
			Int64("guild_id", msg.GuildID).
			Int64("message_id", msg.ID).
			Logger()

		outcome, err := d.processor.Process(d.ctx, msg)
		if err != nil {
			log.Error().Err(err).Msg("autoresponse failed")
			return
		}
		log.Debug().Str("outcome", outcome.String()).Msg("autoresponse done")
	}()
	return true
}

// GuildJoined provisions a guild the bot just joined.
func (d *Dispatcher) GuildJoined(guildID int64) {
	if err := d.processor.Provision(d.ctx, guildID); err != nil {
		d.logger.Error().Err(err).Int64("guild_id", guildID).Msg("guild provisioning failed")
	}
}

// Shutdown stops accepting messages and waits for running ones. Runs still
// going after timeout have their context cancelled.
func (d *Dispatcher) Shutdown(timeout time.Duration) {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		d.cancel()
		<-done
	}
	d.cancel()
}
