// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"strings"

	"nickandperla.net/sentinel/internal/expr"
	"nickandperla.net/sentinel/internal/scanner"
	"nickandperla.net/sentinel/internal/token"
)

// Program is a parsed script.
type Program struct {
	Source  string
	Actions []expr.Action
}

// Parse parses every line of script. Lines with unknown verbs are dropped.
func Parse(script string) (*Program, error) {
	items, err := scanner.NewFromString(script).All()
	if err != nil {
		return nil, err
	}
	prog := &Program{Source: script}
	for _, item := range items {
		if a := parseItem(item); a != nil {
			prog.Actions = append(prog.Actions, a)
		}
	}
	return prog, nil
}

// ParseLine parses a single line. It returns nil for blank lines and
// unknown verbs.
func ParseLine(line string) expr.Action {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	return parseItem(scanner.Parse(line, 1))
}

// Mentions reports whether the script source contains substr.
func (p *Program) Mentions(substr string) bool {
	return strings.Contains(p.Source, substr)
}

func parseItem(item *scanner.Item) expr.Action {
	if item.Token != token.IF && !separated(item) {
		return nil
	}
	switch item.Token {
	case token.SEND:
		channel, text, _ := strings.Cut(item.Rest, " ")
		return expr.Send{Channel: channel, Text: text}
	case token.REPLY:
		return expr.Reply{Text: item.Rest}
	case token.DELETE:
		return expr.Delete{}
	case token.IF:
		return parseIf(item)
	}
	return nil
}

// separated reports whether the verb is followed by whitespace or ends the line.
func separated(item *scanner.Item) bool {
	if len(item.Text) == len(item.Verb) {
		return true
	}
	c := item.Text[len(item.Verb)]
	return c == ' ' || c == '\t'
}

func parseIf(item *scanner.Item) expr.Action {
	if !strings.HasPrefix(item.Rest, "(") {
		return expr.Invalid{Text: item.Text, Reason: "expected ( after if"}
	}
	closing := strings.IndexByte(item.Rest, ')')
	if closing < 0 {
		return expr.Invalid{Text: item.Text, Reason: "missing )"}
	}
	cond := item.Rest[1:closing]
	left, op, right, ok := SplitCondition(cond)
	if !ok {
		return expr.Invalid{Text: item.Text, Reason: "no operator in condition"}
	}
	rest := strings.TrimSpace(item.Rest[closing+1:])
	return expr.If{
		Left:  left,
		Op:    op.Symbol,
		Right: right,
		Then:  ParseLine(rest),
		Rest:  rest,
	}
}
