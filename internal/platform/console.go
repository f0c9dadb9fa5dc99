// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package platform

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Console is a Messenger that prints side effects to a writer. Every
// channel is treated as a sendable text channel. It also serves History
// from the messages passed to Observe.
type Console struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[int64]*Message // Last observed message per channel
	prev map[int64]*Message // Message observed before, by message id
}

// NewConsole creates a console messenger writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{
		w:    w,
		seen: make(map[int64]*Message),
		prev: make(map[int64]*Message),
	}
}

// Observe records msg as the newest message in its channel.
func (c *Console) Observe(msg *Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if last, ok := c.seen[msg.ChannelID]; ok {
		c.prev[msg.ID] = last
	}
	c.seen[msg.ChannelID] = msg
}

// Previous returns the message observed before msg in its channel.
func (c *Console) Previous(ctx context.Context, msg *Message) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prev[msg.ID], nil
}

func (c *Console) Channel(id int64) (*Channel, bool) {
	return &Channel{ID: id, Name: fmt.Sprintf("channel-%d", id), Text: true, CanSend: true}, true
}

func (c *Console) Send(ctx context.Context, channelID int64, text string) error {
	return c.printf("[send %s] %s\n", ChannelMention(channelID), text)
}

func (c *Console) Reply(ctx context.Context, msg *Message, text string) error {
	return c.printf("[reply %d] %s\n", msg.ID, text)
}

func (c *Console) Delete(ctx context.Context, msg *Message) error {
	return c.printf("[delete %d]\n", msg.ID)
}

func (c *Console) printf(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, format, args...)
	return err
}
