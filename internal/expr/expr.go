// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package expr defines autoresponse script actions and operand values.
package expr

import (
	"strings"

	"nickandperla.net/sentinel/internal/token"
)

// Action is the interface all parsed script lines implement.
type Action interface {
	// String returns the script form of the action.
	String() string
	// Verb returns the token that introduced the action.
	Verb() token.Token
}

// Send posts Text to the channel named by Channel.
type Send struct {
	Channel string // Unparsed channel id as written
	Text    string
}

func (s Send) String() string {
	return token.WordSend + " " + s.Channel + " " + s.Text
}
func (s Send) Verb() token.Token { return token.SEND }

// Reply answers the triggering message.
type Reply struct {
	Text string
}

func (r Reply) String() string    { return token.WordReply + " " + r.Text }
func (r Reply) Verb() token.Token { return token.REPLY }

// Delete removes the triggering message.
type Delete struct{}

func (d Delete) String() string    { return token.WordDelete }
func (d Delete) Verb() token.Token { return token.DELETE }

// If guards Then behind a single comparison.
type If struct {
	Left  string
	Op    string
	Right string
	Then  Action // nil when the continuation is empty or not an action
	Rest  string // Continuation text after the closing parenthesis
}

func (i If) String() string {
	var sb strings.Builder
	sb.WriteString(token.WordIf)
	sb.WriteString("(")
	sb.WriteString(i.Left)
	sb.WriteString(" ")
	sb.WriteString(i.Op)
	sb.WriteString(" ")
	sb.WriteString(i.Right)
	sb.WriteString(")")
	if i.Rest != "" {
		sb.WriteString(" ")
		sb.WriteString(i.Rest)
	}
	return sb.String()
}
func (i If) Verb() token.Token { return token.IF }

// Invalid is a malformed line. It never matches and never acts.
type Invalid struct {
	Text   string
	Reason string
}

func (v Invalid) String() string    { return v.Text }
func (v Invalid) Verb() token.Token { return token.UNKNOWN }

// Flatten returns the chain of actions an If nests, outermost first.
func Flatten(a Action) []Action {
	var out []Action
	for a != nil {
		out = append(out, a)
		i, ok := a.(If)
		if !ok {
			break
		}
		a = i.Then
	}
	return out
}
