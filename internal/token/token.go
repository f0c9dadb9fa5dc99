// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines autoresponse script verbs and comparison operator symbols.
package token

// Token represents the verb that starts an autoresponse script line.
type Token int

const (
	EOF Token = iota
	UNKNOWN

	// Verbs
	SEND   // send <channel_id> <text...>
	REPLY  // reply <text...>
	DELETE // delete
	IF     // if(<left> <op> <right>) <statement>
)

// Verb words as written in scripts.
const (
	WordSend   = "send"
	WordReply  = "reply"
	WordDelete = "delete"
	WordIf     = "if"
)

// Lookup returns the verb token for a word, or UNKNOWN.
func Lookup(word string) Token {
	switch word {
	case WordSend:
		return SEND
	case WordReply:
		return REPLY
	case WordDelete:
		return DELETE
	case WordIf:
		return IF
	}
	return UNKNOWN
}

// String returns the string representation of a token.
func (t Token) String() string {
	switch t {
	case EOF:
		return "EOF"
	case UNKNOWN:
		return "UNKNOWN"
	case SEND:
		return "SEND"
	case REPLY:
		return "REPLY"
	case DELETE:
		return "DELETE"
	case IF:
		return "IF"
	}
	return "UNKNOWN"
}

// IsAction returns true if the token performs a side effect.
func (t Token) IsAction() bool {
	switch t {
	case SEND, REPLY, DELETE:
		return true
	}
	return false
}

// Comparison operator symbols. Containment reads "a in b", prefix and
// suffix read "a starts with b" and "a ends with b". A '?' marks the
// case-insensitive form and a leading '!' negates.
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpGreater      = ">>"
	OpLess         = "<<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="

	OpIn        = "<.>"
	OpInFold    = "<?>"
	OpNotIn     = "!<.>"
	OpNotInFold = "!<?>"

	OpPrefix        = ".>"
	OpPrefixFold    = "?>"
	OpNotPrefix     = "!.>"
	OpNotPrefixFold = "!?>"

	OpSuffix        = ".<"
	OpSuffixFold    = "?<"
	OpNotSuffix     = "!.<"
	OpNotSuffixFold = "!?<"
)

// OperatorSymbols lists every operator symbol in table order.
var OperatorSymbols = []string{
	OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual,
	OpIn, OpInFold, OpNotIn, OpNotInFold,
	OpPrefix, OpPrefixFold, OpNotPrefix, OpNotPrefixFold,
	OpSuffix, OpSuffixFold, OpNotSuffix, OpNotSuffixFold,
}
