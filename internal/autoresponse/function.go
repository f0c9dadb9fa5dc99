// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package autoresponse runs guild autoresponse functions against incoming
// messages and manages the stored function lists.
package autoresponse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"nickandperla.net/sentinel/internal/eval"
	"nickandperla.net/sentinel/internal/expr"
	"nickandperla.net/sentinel/internal/token"
)

// Limits applied when adding a function.
const (
	MaxNameLength   = 32
	MinScriptLength = 7
	MaxScriptLength = 1000
	MaxChoices      = 25
	MaxChoiceValue  = 100
	MinChoiceRatio  = 0.25
	separator       = ";"
)

// ErrFunctionNotFound is returned when no stored function matches.
var ErrFunctionNotFound = errors.New("autoresponse: function not found")

// BadInputError reports a rejected name or script.
type BadInputError struct {
	Reason string
}

func (e *BadInputError) Error() string {
	return "autoresponse: " + e.Reason
}

func badInput(format string, args ...any) error {
	return &BadInputError{Reason: fmt.Sprintf(format, args...)}
}

// Function is a named autoresponse script.
type Function struct {
	Name   string
	Script string
}

// ParseFunction splits a stored "<name>;<script>" string.
func ParseFunction(stored string) (Function, bool) {
	name, script, ok := strings.Cut(stored, separator)
	if !ok {
		return Function{}, false
	}
	return Function{Name: name, Script: strings.TrimSpace(script)}, true
}

// String returns the stored form of f.
func (f Function) String() string {
	return f.Name + separator + f.Script
}

// Lines returns the script's lines.
func (f Function) Lines() []string {
	return strings.Split(strings.ReplaceAll(f.Script, "\r\n", "\n"), "\n")
}

var (
	nameSyntax = regexp.MustCompile(`^[A-Za-z0-9, \[\]\-_!@#$%^&*()]{1,32}$`)
	lineSyntax = regexp.MustCompile(
		`^(?:if *\(.+(?:` + operatorAlternation() + `).+\) *)*` +
			`(?:send +[0-9]{17,19} +.{1,1000}|reply +.{1,1000}|delete *)$`)
)

func operatorAlternation() string {
	quoted := make([]string, len(token.OperatorSymbols))
	for i, op := range token.OperatorSymbols {
		quoted[i] = regexp.QuoteMeta(op)
	}
	return strings.Join(quoted, "|")
}

// ValidateName checks a function name.
func ValidateName(name string) error {
	if !nameSyntax.MatchString(name) {
		return badInput("invalid name syntax: names are 1-%d letters, digits, spaces or , [ ] - _ ! @ # $ %% ^ & * ( )", MaxNameLength)
	}
	return nil
}

// ValidateScript checks every line of a script against the action grammar
// and makes sure it parses into actions.
func ValidateScript(script string) error {
	if n := utf8.RuneCountInString(script); n < MinScriptLength || n > MaxScriptLength {
		return badInput("script must be %d-%d characters, got %d", MinScriptLength, MaxScriptLength, n)
	}
	fn := Function{Script: script}
	lines := 0
	for i, line := range fn.Lines() {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines++
		if !lineSyntax.MatchString(line) {
			return badInput("invalid code syntax on line %d", i+1)
		}
		chain := expr.Flatten(eval.ParseLine(line))
		if len(chain) == 0 {
			return badInput("invalid code syntax on line %d", i+1)
		}
		switch last := chain[len(chain)-1].(type) {
		case expr.Invalid:
			return badInput("invalid condition on line %d: %s", i+1, last.Reason)
		case expr.If:
			return badInput("condition on line %d has no action", i+1)
		}
	}
	if lines == 0 {
		return badInput("script has no actions")
	}
	return nil
}
