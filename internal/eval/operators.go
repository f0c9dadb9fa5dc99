// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"sort"
	"strings"

	"nickandperla.net/sentinel/internal/expr"
	"nickandperla.net/sentinel/internal/token"
)

// Predicate compares two operands.
type Predicate func(a, b expr.Value) bool

// Operator is a named binary predicate.
type Operator struct {
	Symbol string
	Eval   Predicate
}

// Operators is the fixed operator table in declaration order.
var Operators = []Operator{
	{token.OpEqual, Equal},
	{token.OpNotEqual, not(Equal)},
	{token.OpGreater, Greater},
	{token.OpLess, Less},
	{token.OpGreaterEqual, or(Greater, Equal)},
	{token.OpLessEqual, or(Less, Equal)},

	{token.OpIn, In},
	{token.OpInFold, fold(In)},
	{token.OpNotIn, not(In)},
	{token.OpNotInFold, not(fold(In))},

	{token.OpPrefix, Prefix},
	{token.OpPrefixFold, fold(Prefix)},
	{token.OpNotPrefix, not(Prefix)},
	{token.OpNotPrefixFold, not(fold(Prefix))},

	{token.OpSuffix, Suffix},
	{token.OpSuffixFold, fold(Suffix)},
	{token.OpNotSuffix, not(Suffix)},
	{token.OpNotSuffixFold, not(fold(Suffix))},
}

// scanOrder is Operators sorted longest symbol first, ties in table order.
var scanOrder = func() []Operator {
	ops := make([]Operator, len(Operators))
	copy(ops, Operators)
	sort.SliceStable(ops, func(i, j int) bool {
		return len(ops[i].Symbol) > len(ops[j].Symbol)
	})
	return ops
}()

// LookupOperator returns the operator for symbol.
func LookupOperator(symbol string) (Operator, bool) {
	for _, op := range Operators {
		if op.Symbol == symbol {
			return op, true
		}
	}
	return Operator{}, false
}

// SplitCondition finds the operator in cond and splits cond around its first
// occurrence. Longer symbols are tried before shorter ones so that "!.>" is
// never read as ".>".
func SplitCondition(cond string) (left string, op Operator, right string, ok bool) {
	for _, candidate := range scanOrder {
		if l, r, found := strings.Cut(cond, candidate.Symbol); found {
			return strings.TrimSpace(l), candidate, strings.TrimSpace(r), true
		}
	}
	return "", Operator{}, "", false
}

// Equal compares stringified operands.
func Equal(a, b expr.Value) bool {
	return expr.Coerce(a).String() == expr.Coerce(b).String()
}

// Greater orders operands of the same type natively and otherwise falls
// back to comparing their original text.
func Greater(a, b expr.Value) bool {
	ca, cb := expr.Coerce(a), expr.Coerce(b)
	switch {
	case ca.IsInt() && cb.IsInt():
		return ca.Int() > cb.Int()
	case !ca.IsInt() && !cb.IsInt():
		return ca.String() > cb.String()
	}
	return a.String() > b.String()
}

// Less is "not greater", so it holds for equal operands.
func Less(a, b expr.Value) bool {
	return !Greater(a, b)
}

// In reports whether a occurs in b.
func In(a, b expr.Value) bool {
	return strings.Contains(expr.Coerce(b).String(), expr.Coerce(a).String())
}

// Prefix reports whether a starts with b.
func Prefix(a, b expr.Value) bool {
	return strings.HasPrefix(expr.Coerce(a).String(), expr.Coerce(b).String())
}

// Suffix reports whether a ends with b.
func Suffix(a, b expr.Value) bool {
	return strings.HasSuffix(expr.Coerce(a).String(), expr.Coerce(b).String())
}

func not(p Predicate) Predicate {
	return func(a, b expr.Value) bool { return !p(a, b) }
}

func or(p, q Predicate) Predicate {
	return func(a, b expr.Value) bool { return p(a, b) || q(a, b) }
}

func fold(p Predicate) Predicate {
	return func(a, b expr.Value) bool {
		return p(expr.Str(strings.ToLower(a.String())), expr.Str(strings.ToLower(b.String())))
	}
}
