// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"strings"

	"nickandperla.net/sentinel/internal/expr"
)

// ResolveOperand turns operand text into a value. An operand that names a
// placeholder takes that placeholder's value. Otherwise {name} references
// are expanded and the result is read as a quoted string or integer
// literal, falling back to the expanded text itself.
func ResolveOperand(text string, ns *Namespace) expr.Value {
	text = strings.TrimSpace(text)
	if v, ok := ns.Get(text); ok {
		return v
	}
	return expr.ParseOperand(ns.Expand(text))
}

// Test evaluates the comparison of an If against ns. Unknown operators
// never match.
func Test(cond expr.If, ns *Namespace) bool {
	op, ok := LookupOperator(cond.Op)
	if !ok {
		return false
	}
	return op.Eval(ResolveOperand(cond.Left, ns), ResolveOperand(cond.Right, ns))
}

// EvaluateIf evaluates a single "if(<left> <op> <right>) <statement>" line.
// It reports whether the condition held and returns the statement text that
// follows the closing parenthesis. Malformed lines never match.
func EvaluateIf(line string, ns *Namespace) (matched bool, continuation string) {
	cond, ok := ParseLine(line).(expr.If)
	if !ok {
		return false, ""
	}
	return Test(cond, ns), cond.Rest
}
