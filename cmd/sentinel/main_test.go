package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "DISCORD_TOKEN", "SQLITE_PATH", "CACHE_TTL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV", "development")
	return filepath.Join(t.TempDir(), "sentinel.db")
}

// execute runs the CLI in-process and returns what it wrote to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := execute(t, stdin, args...)
	if err != nil {
		t.Fatalf("sentinel %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestMigrate(t *testing.T) {
	db := setupEnv(t)
	out := mustExecute(t, "", "migrate", "--db", db)
	if !strings.Contains(out, "sqlite schema version 1") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestAutoresponseAndSimulate(t *testing.T) {
	db := setupEnv(t)

	mustExecute(t, "", "autoresponse", "add", "--db", db, "-g", "1", "ping", `if(message_content == "ping") reply pong`)
	mustExecute(t, "reply {author_name} said {message_content}\n", "autoresponse", "add", "--db", db, "-g", "1", "echo")

	out := mustExecute(t, "", "autoresponse", "list", "--db", db, "-g", "1")
	if !strings.Contains(out, "ping\n") || !strings.Contains(out, "echo\n") || !strings.Contains(out, "Page 1/1") {
		t.Errorf("unexpected list output: %s", out)
	}

	if _, err := execute(t, "", "autoresponse", "add", "--db", db, "-g", "1", "bad", "say hello"); err == nil {
		t.Error("expected an invalid script to be rejected")
	}

	out = mustExecute(t, "ping\npingg\n", "simulate", "--db", db, "-g", "1", "--name", "nick")
	if !strings.Contains(out, "[reply 1] pong\n") {
		t.Errorf("expected a pong reply, got: %s", out)
	}
	if strings.Contains(out, "[reply 2] pong") {
		t.Errorf("expected no pong for 'pingg', got: %s", out)
	}
	if !strings.Contains(out, "[reply 2] nick said pingg\n") {
		t.Errorf("expected the echo function to run, got: %s", out)
	}

	mustExecute(t, "", "autoresponse", "remove", "--db", db, "-g", "1", "echo;")
	mustExecute(t, "", "autoresponse", "enable", "--db", db, "-g", "1", "false")
	out = mustExecute(t, "ping\n", "simulate", "--db", db, "-g", "1")
	if !strings.Contains(out, "(disabled)") || strings.Contains(out, "pong") {
		t.Errorf("expected processing to be disabled, got: %s", out)
	}
}

func TestImmunity(t *testing.T) {
	db := setupEnv(t)

	mustExecute(t, "", "autoresponse", "add", "--db", db, "-g", "1", "ping", "reply pong")
	mustExecute(t, "", "autoresponse", "immune", "--db", db, "-g", "1", "-u", "3", "true")

	out := mustExecute(t, "ping\n", "simulate", "--db", db, "-g", "1", "-u", "3")
	if !strings.Contains(out, "(immune)") {
		t.Errorf("expected immune outcome, got: %s", out)
	}

	mustExecute(t, "", "autoresponse", "allow-immunity", "--db", db, "-g", "1", "false")
	if _, err := execute(t, "", "autoresponse", "immune", "--db", db, "-g", "1", "-u", "3", "false"); err == nil {
		t.Error("expected changing immunity to be refused")
	}
}

func TestSimulateMemory(t *testing.T) {
	setupEnv(t)
	out := mustExecute(t, "first line\\\nsecond line\n", "simulate", "--memory")
	if strings.Contains(out, "Error") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestTags(t *testing.T) {
	db := setupEnv(t)
	base := []string{"--db", db, "-g", "1", "-u", "5"}
	run := func(args ...string) string {
		return mustExecute(t, "", append(append([]string{"tag"}, args...), base...)...)
	}

	run("create", "Rules", "be nice")
	run("alias", "r", "rules")
	if out := run("get", "r"); out != "be nice\n" {
		t.Errorf("unexpected tag content %q", out)
	}

	out := run("info", "rules")
	if !strings.Contains(out, "Owner: 5") || !strings.Contains(out, "Aliases: r") || !strings.Contains(out, "Uses:  1") {
		t.Errorf("unexpected info output: %s", out)
	}

	out = run("search", "rule")
	if !strings.Contains(out, "rules\t0.80") {
		t.Errorf("unexpected search output: %s", out)
	}

	if _, err := execute(t, "", "tag", "edit", "rules", "mine now", "--db", db, "-g", "1", "-u", "6"); err == nil {
		t.Error("expected a non-owner edit to fail")
	}
	mustExecute(t, "", "tag", "edit", "rules", "admin edit", "--db", db, "-g", "1", "--admin")
	run("transfer", "rules", "6")
	run("delete", "rules", "--admin")

	if out := run("list"); out != "" {
		t.Errorf("expected no tags after delete, got %q", out)
	}
}
