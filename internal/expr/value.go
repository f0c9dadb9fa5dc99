// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package expr

import (
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindStr Kind = iota
	KindInt
)

func (k Kind) String() string {
	if k == KindInt {
		return "int"
	}
	return "str"
}

// Value is an operand of a condition: either a string or a 64-bit integer.
type Value struct {
	kind Kind
	str  string
	num  int64
}

// Str returns a string Value.
func Str(s string) Value {
	return Value{kind: KindStr, str: s}
}

// Int returns an integer Value.
func Int(n int64) Value {
	return Value{kind: KindInt, num: n}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsInt returns true if v holds an integer.
func (v Value) IsInt() bool { return v.kind == KindInt }

// Int returns the integer held by v, or 0 for strings.
func (v Value) Int() int64 { return v.num }

// String returns the stringified form used by equality and containment.
func (v Value) String() string {
	if v.kind == KindInt {
		return strconv.FormatInt(v.num, 10)
	}
	return v.str
}

// Literal renders v in the form ParseLiteral accepts.
func (v Value) Literal() string {
	if v.kind == KindInt {
		return strconv.FormatInt(v.num, 10)
	}
	return strconv.Quote(v.str)
}

// ParseLiteral accepts exactly a double-quoted string or an optionally
// negative run of decimal digits. Anything else is rejected.
func ParseLiteral(s string) (Value, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return Value{}, false
		}
		return Str(unq), true
	}
	if n, ok := parseInteger(s); ok {
		return Int(n), true
	}
	return Value{}, false
}

// ParseOperand resolves operand text to a Value, falling back to the raw
// text when it is not a literal.
func ParseOperand(s string) Value {
	if v, ok := ParseLiteral(s); ok {
		return v
	}
	return Str(s)
}

// Coerce turns a string that reads as an integer into an Int.
func Coerce(v Value) Value {
	if v.kind == KindInt {
		return v
	}
	if n, ok := parseInteger(strings.TrimSpace(v.str)); ok {
		return Int(n)
	}
	return v
}

func parseInteger(s string) (int64, bool) {
	digits := strings.TrimPrefix(s, "-")
	if digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
