// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"context"
	"fmt"

	"nickandperla.net/sentinel/internal/expr"
	"nickandperla.net/sentinel/internal/platform"
)

// Placeholder names available to scripts. Every name also exists with a
// "last_" prefix when the previous message is looked up.
const (
	KeyMessageContent = "message_content"
	KeyMessageID      = "message_id"
	KeyMessageLink    = "message_link"
	KeyAuthorMention  = "author_mention"
	KeyAuthorName     = "author_name"
	KeyAuthorID       = "author_id"
	KeyAuthorFull     = "author_full"
	KeyChannelMention = "channel_mention"
	KeyChannelName    = "channel_name"
	KeyChannelID      = "channel_id"
	KeyGuildName      = "guild_name"
	KeyGuildID        = "guild_id"

	LastPrefix = "last_"
)

// Keys lists the placeholder names derived from a single message.
var Keys = []string{
	KeyMessageContent, KeyMessageID, KeyMessageLink,
	KeyAuthorMention, KeyAuthorName, KeyAuthorID, KeyAuthorFull,
	KeyChannelMention, KeyChannelName, KeyChannelID,
	KeyGuildName, KeyGuildID,
}

// BuildContext produces the namespace for msg. When includePrevious is set
// the message before msg is fetched from history and mirrored under the
// last_ prefix. If there is no previous message the last_ keys are absent.
func BuildContext(ctx context.Context, msg *platform.Message, history platform.History, includePrevious bool) (*Namespace, error) {
	values := make(map[string]expr.Value, len(Keys)*2)
	addMessage(values, "", msg)

	if includePrevious && history != nil {
		prev, err := history.Previous(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("fetch previous message: %w", err)
		}
		if prev != nil {
			addMessage(values, LastPrefix, prev)
		}
	}
	return NewNamespace(values), nil
}

func addMessage(values map[string]expr.Value, prefix string, msg *platform.Message) {
	values[prefix+KeyMessageContent] = expr.Str(msg.Content)
	values[prefix+KeyMessageID] = expr.Int(msg.ID)
	values[prefix+KeyMessageLink] = expr.Str(msg.Link())
	values[prefix+KeyAuthorMention] = expr.Str(msg.Author.Mention())
	values[prefix+KeyAuthorName] = expr.Str(msg.Author.Name)
	values[prefix+KeyAuthorID] = expr.Int(msg.Author.ID)
	values[prefix+KeyAuthorFull] = expr.Str(msg.Author.Full())
	values[prefix+KeyChannelMention] = expr.Str(msg.ChannelMention())
	values[prefix+KeyChannelName] = expr.Str(msg.ChannelName)
	values[prefix+KeyChannelID] = expr.Int(msg.ChannelID)
	values[prefix+KeyGuildName] = expr.Str(msg.GuildName)
	values[prefix+KeyGuildID] = expr.Int(msg.GuildID)
}
