package sentinel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"nickandperla.net/sentinel/internal/autoresponse"
	"nickandperla.net/sentinel/internal/platform"
	"nickandperla.net/sentinel/internal/tags"
)

const (
	guild   = 1000
	channel = 2000
)

func newRuntime(t *testing.T, opts ...Option) (*Runtime, *platform.Recorder) {
	t.Helper()
	rec := platform.NewRecorder(&platform.Channel{ID: channel, GuildID: guild, Text: true, CanSend: true})
	r, err := New(append([]Option{WithMessenger(rec)}, opts...)...)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, rec
}

func message(id int64, content string) *platform.Message {
	return &platform.Message{
		ID:        id,
		ChannelID: channel,
		GuildID:   guild,
		Content:   content,
		Author:    platform.User{ID: 200, Name: "nick"},
	}
}

func TestRuntimeAutoresponse(t *testing.T) {
	r, rec := newRuntime(t, WithMemoryStore())
	ctx := context.Background()

	if err := r.HandleGuildJoin(ctx, guild); err != nil {
		t.Fatalf("guild join: %v", err)
	}
	// Prime the function list cache before adding.
	if outcome, err := r.HandleMessage(ctx, message(1, "ping")); err != nil || outcome != autoresponse.Ran {
		t.Fatalf("expected Ran, got %s, %v", outcome, err)
	}
	if _, err := r.Manager().Add(ctx, guild, "ping", `if(message_content == "ping") reply pong`); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := r.HandleMessage(ctx, message(2, "ping")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	actions := rec.Actions()
	if len(actions) != 1 || actions[0].Text != "pong" {
		t.Errorf("expected the new function to run, got %+v", actions)
	}

	if _, err := r.Manager().Remove(ctx, guild, "ping;"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	rec.Reset()
	r.HandleMessage(ctx, message(3, "ping"))
	if got := rec.Actions(); len(got) != 0 {
		t.Errorf("expected removal to take effect, got %+v", got)
	}
}

func TestRuntimeDispatch(t *testing.T) {
	rec := platform.NewRecorder(&platform.Channel{ID: channel, GuildID: guild, Text: true, CanSend: true})
	r, err := New(WithMessenger(rec))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	r.Manager().Add(ctx, guild, "echo", "reply {message_content}")

	r.Dispatch(message(1, "one"))
	r.Dispatch(message(2, "two"))
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := rec.Actions(); len(got) != 2 {
		t.Errorf("expected both messages to be handled before Close returned, got %+v", got)
	}
	if r.Dispatch(message(3, "three")) {
		t.Error("expected Dispatch to refuse messages after Close")
	}
}

func TestRuntimeTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.db")
	r, _ := newRuntime(t, WithSQLiteStore(path))
	ctx := context.Background()

	if err := r.Tags().Create(ctx, guild, 200, "faq", "read the pins"); err != nil {
		t.Fatalf("create: %v", err)
	}
	entry, err := r.Tags().Get(ctx, guild, "FAQ")
	if err != nil || entry.Content.Content != "read the pins" {
		t.Fatalf("unexpected entry %+v, %v", entry, err)
	}
	if _, err := r.Tags().Get(ctx, guild, "nope"); !errors.Is(err, tags.ErrTagNotFound) {
		t.Errorf("expected ErrTagNotFound, got %v", err)
	}
	if err := r.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestRuntimeBadStore(t *testing.T) {
	if _, err := New(WithSQLiteStore(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))); err == nil {
		t.Error("expected an unopenable database to fail New")
	}
}
