// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval implements the autoresponse script interpreter.
package eval

import (
	"sort"
	"strings"

	"nickandperla.net/sentinel/internal/expr"
)

// Namespace is the immutable set of placeholder values for one message.
type Namespace struct {
	store map[string]expr.Value
}

// NewNamespace creates a namespace holding a copy of values.
func NewNamespace(values map[string]expr.Value) *Namespace {
	n := &Namespace{store: make(map[string]expr.Value, len(values))}
	for k, v := range values {
		n.store[k] = v
	}
	return n
}

// Get retrieves a value by placeholder name.
func (n *Namespace) Get(name string) (expr.Value, bool) {
	if n == nil {
		return expr.Value{}, false
	}
	v, ok := n.store[name]
	return v, ok
}

// Has returns true if the name exists in the namespace.
func (n *Namespace) Has(name string) bool {
	_, ok := n.Get(name)
	return ok
}

// Literal returns the quoted-string or integer form of a value.
func (n *Namespace) Literal(name string) (string, bool) {
	v, ok := n.Get(name)
	if !ok {
		return "", false
	}
	return v.Literal(), true
}

// Keys returns every placeholder name in sorted order.
func (n *Namespace) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.store))
	for k := range n.store {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Expand replaces each {name} in text with the plain value of name.
// Unknown names and unmatched braces are left as written.
func (n *Namespace) Expand(text string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	var sb strings.Builder
	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(text[open:], '}')
		if end < 0 {
			break
		}
		end += open
		name := text[open+1 : end]
		if v, ok := n.Get(name); ok {
			sb.WriteString(text[:open])
			sb.WriteString(v.String())
			text = text[end+1:]
			continue
		}
		sb.WriteString(text[:open+1])
		text = text[open+1:]
	}
	sb.WriteString(text)
	return sb.String()
}
