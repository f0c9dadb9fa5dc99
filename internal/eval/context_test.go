// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"context"
	"testing"

	"nickandperla.net/sentinel/internal/expr"
	"nickandperla.net/sentinel/internal/platform"
)

func TestBuildContext(t *testing.T) {
	msg := testMessage("hello")
	ns, err := BuildContext(context.Background(), msg, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range Keys {
		if !ns.Has(key) {
			t.Errorf("missing key %s", key)
		}
		if ns.Has(LastPrefix + key) {
			t.Errorf("unexpected key %s without lookback", LastPrefix+key)
		}
	}

	if v, _ := ns.Get(KeyAuthorID); !v.IsInt() || v.Int() != 200 {
		t.Errorf("expected author_id 200, got %s", v.Literal())
	}
	if lit, _ := ns.Literal(KeyMessageContent); lit != `"hello"` {
		t.Errorf("expected quoted content, got %s", lit)
	}
	if v, _ := ns.Get(KeyMessageLink); v.String() != "https://discord.com/channels/1000/2000/3000" {
		t.Errorf("unexpected link %s", v.String())
	}
	if v, _ := ns.Get(KeyAuthorFull); v.String() != "nick" {
		t.Errorf("unexpected author_full %s", v.String())
	}
	if v, _ := ns.Get(KeyChannelMention); v.String() != "<#2000>" {
		t.Errorf("unexpected channel_mention %s", v.String())
	}
}

func TestBuildContextPrevious(t *testing.T) {
	rec := platform.NewRecorder()
	msg := testMessage("second")
	prev := testMessage("first")
	prev.ID = 2999
	prev.Author = platform.User{ID: 300, Name: "perla", Discriminator: "1234"}
	rec.SetPrevious(msg, prev)

	ns, err := BuildContext(context.Background(), msg, rec, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := ns.Get("last_message_content"); v.String() != "first" {
		t.Errorf("expected last_message_content 'first', got %q", v.String())
	}
	if v, _ := ns.Get("last_author_full"); v.String() != "perla#1234" {
		t.Errorf("expected last_author_full 'perla#1234', got %q", v.String())
	}
	if v, _ := ns.Get("last_author_mention"); v.String() != "<@300>" {
		t.Errorf("unexpected last_author_mention %q", v.String())
	}

	// No previous message: last_ keys are left out.
	lonely := testMessage("only")
	lonely.ID = 4000
	ns, err = BuildContext(context.Background(), lonely, rec, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ns.Has("last_message_content") {
		t.Error("expected no last_ keys without a previous message")
	}
}

func TestResolveOperand(t *testing.T) {
	ns := NewNamespace(map[string]expr.Value{
		KeyMessageContent: expr.Str("42"),
		KeyAuthorName:     expr.Str("nick"),
	})
	tests := []struct {
		in   string
		want expr.Value
	}{
		{"message_content", expr.Str("42")},
		{`"quoted"`, expr.Str("quoted")},
		{"-17", expr.Int(-17)},
		{"bare words", expr.Str("bare words")},
		{"{author_name}", expr.Str("nick")},
		{"hi {author_name}", expr.Str("hi nick")},
		{"1+1", expr.Str("1+1")},
	}
	for _, tt := range tests {
		got := ResolveOperand(tt.in, ns)
		if got.Kind() != tt.want.Kind() || got.String() != tt.want.String() {
			t.Errorf("ResolveOperand(%q) = %s, want %s", tt.in, got.Literal(), tt.want.Literal())
		}
	}
}
