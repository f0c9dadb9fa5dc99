// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package platform defines the chat platform types and the messaging
// collaborator consumed by the autoresponse interpreter.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrPermission is returned when the bot lacks permission for an action.
	ErrPermission = errors.New("platform: missing permissions")
	// ErrUnknownMessage is returned when acting on a message that no longer exists.
	ErrUnknownMessage = errors.New("platform: unknown message")
)

// User is a message author.
type User struct {
	ID            int64
	Name          string
	Discriminator string // "0" or empty for accounts without a legacy tag
	Bot           bool
}

// Mention returns the user's mention markup.
func (u User) Mention() string {
	return "<@" + strconv.FormatInt(u.ID, 10) + ">"
}

// Full returns the "name#tag" form, or just the name for accounts without a tag.
func (u User) Full() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Name
	}
	return u.Name + "#" + u.Discriminator
}

// Message is an incoming guild message.
type Message struct {
	ID          int64
	ChannelID   int64
	GuildID     int64 // 0 for direct messages
	Content     string
	Author      User
	ChannelName string
	GuildName   string
}

// Link returns the message permalink.
func (m *Message) Link() string {
	guild := "@me"
	if m.GuildID != 0 {
		guild = strconv.FormatInt(m.GuildID, 10)
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%d/%d", guild, m.ChannelID, m.ID)
}

// ChannelMention returns the mention markup of the message's channel.
func (m *Message) ChannelMention() string {
	return ChannelMention(m.ChannelID)
}

// ChannelMention returns the mention markup for a channel id.
func ChannelMention(id int64) string {
	return "<#" + strconv.FormatInt(id, 10) + ">"
}

// Channel is a cached channel as seen by the bot.
type Channel struct {
	ID      int64
	GuildID int64
	Name    string
	Text    bool // Guild text channel
	CanSend bool // Bot holds send permission
}

// Sendable returns true if the bot may post in the channel.
func (c *Channel) Sendable() bool {
	return c != nil && c.Text && c.CanSend
}

// Messenger performs side effects on the chat platform.
type Messenger interface {
	// Channel looks a channel up in the local cache. It never fetches.
	Channel(id int64) (*Channel, bool)
	// Send posts text to a channel.
	Send(ctx context.Context, channelID int64, text string) error
	// Reply answers msg in its channel.
	Reply(ctx context.Context, msg *Message, text string) error
	// Delete removes msg.
	Delete(ctx context.Context, msg *Message) error
}

// History reads channel history.
type History interface {
	// Previous returns the message strictly before msg in its channel, or
	// nil if there is none.
	Previous(ctx context.Context, msg *Message) (*Message, error)
}
