// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner splits autoresponse scripts into verb-tagged lines.
package scanner

import (
	"bufio"
	"io"
	"strings"

	"nickandperla.net/sentinel/internal/token"
)

// Scanner reads a script line by line.
type Scanner struct {
	reader *bufio.Reader
	line   int // Line number of the last returned item (1-based)
	done   bool
}

// Item represents one non-blank script line.
type Item struct {
	Token token.Token
	Verb  string // The verb word as written
	Rest  string // Everything after the verb, leading spaces removed
	Text  string // The whole line, trimmed
	Line  int
}

// New creates a new Scanner from an io.Reader.
func New(r io.Reader) *Scanner {
	return &Scanner{reader: bufio.NewReader(r)}
}

// NewFromString creates a new Scanner from a string.
func NewFromString(s string) *Scanner {
	return New(strings.NewReader(s))
}

// Line returns the line number of the last returned item.
func (s *Scanner) Line() int {
	return s.line
}

// Next returns the next non-blank line. At the end of input it returns an
// item whose Token is token.EOF.
func (s *Scanner) Next() (*Item, error) {
	for !s.done {
		raw, err := s.reader.ReadString('\n')
		if err == io.EOF {
			s.done = true
		} else if err != nil {
			return nil, err
		}
		if raw == "" && s.done {
			break
		}
		s.line++

		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		return Parse(text, s.line), nil
	}
	return &Item{Token: token.EOF, Line: s.line}, nil
}

// All returns every remaining item, excluding EOF.
func (s *Scanner) All() ([]*Item, error) {
	var items []*Item
	for {
		item, err := s.Next()
		if err != nil {
			return nil, err
		}
		if item.Token == token.EOF {
			return items, nil
		}
		items = append(items, item)
	}
}

// Parse builds an Item from a single line of script text.
func Parse(text string, line int) *Item {
	text = strings.TrimSpace(text)
	verb, rest := SplitVerb(text)
	return &Item{
		Token: token.Lookup(verb),
		Verb:  verb,
		Rest:  rest,
		Text:  text,
		Line:  line,
	}
}

// SplitVerb separates the leading verb from the rest of a line. The verb is
// the run of ASCII letters at the start, so both "if (" and "if(" yield "if".
func SplitVerb(text string) (verb, rest string) {
	i := 0
	for i < len(text) && isVerbChar(text[i]) {
		i++
	}
	verb = text[:i]
	rest = strings.TrimLeft(text[i:], " \t")
	return verb, rest
}

func isVerbChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
