package autoresponse

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"nickandperla.net/sentinel/internal/store"
)

func TestValidateName(t *testing.T) {
	valid := []string{"ping", "Rule #1", "[mod] filter", "a-b_c!(x)"}
	for _, name := range valid {
		if err := ValidateName(name); err != nil {
			t.Errorf("ValidateName(%q): unexpected error %v", name, err)
		}
	}
	invalid := []string{"", "semi;colon", "new\nline", strings.Repeat("x", MaxNameLength+1), "emoji 🙂"}
	for _, name := range invalid {
		var bad *BadInputError
		if err := ValidateName(name); !errors.As(err, &bad) {
			t.Errorf("ValidateName(%q): expected BadInputError, got %v", name, err)
		}
	}
}

func TestValidateScript(t *testing.T) {
	tests := []struct {
		script string
		ok     bool
	}{
		{`if(message_content == "ping") reply pong`, true},
		{"reply hello", true},
		{"if(a == b) delete", true},
		{"send 123456789012345678 hello there", true},
		{"if (author_id >> 100) if(\"x\" <?> message_content) delete", true},
		{"reply one\n\nreply two", true},
		{"delete", false},
		{"send 555 hi", false},
		{"send 12345678901234567890 hi", false},
		{"reply " + strings.Repeat("\U0001F600", 300), true},
		{"reply " + strings.Repeat("\u00e9", 995), false},
		{"shout hello", false},
		{"if(message_content) reply x", false},
		{"if(a == b)", false},
		{strings.Repeat("reply x\n", 200), false},
		{"reply ok\nwhat is this", false},
	}
	for _, tt := range tests {
		err := ValidateScript(tt.script)
		if tt.ok && err != nil {
			t.Errorf("ValidateScript(%q): unexpected error %v", tt.script, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("ValidateScript(%q): expected an error", tt.script)
		}
	}
}

func TestParseFunction(t *testing.T) {
	fn, ok := ParseFunction("greet;reply hi; there\nreply again")
	if !ok || fn.Name != "greet" || fn.Script != "reply hi; there\nreply again" {
		t.Fatalf("unexpected parse: %+v, %v", fn, ok)
	}
	if len(fn.Lines()) != 2 {
		t.Errorf("expected 2 lines, got %v", fn.Lines())
	}
	if fn.String() != "greet;reply hi; there\nreply again" {
		t.Errorf("unexpected stored form %q", fn.String())
	}
	if _, ok := ParseFunction("no separator"); ok {
		t.Error("expected a string without ';' to be rejected")
	}
}

func newManager(t *testing.T) (*Manager, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	return NewManager(s, s), s
}

func TestManagerAddAndList(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	if _, err := m.Add(ctx, testGuild, "ping", `if(message_content == "ping") reply pong`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.Add(ctx, testGuild, "bye", "  reply bye  \n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _, _ := s.GetAutoresponseFunctions(ctx, testGuild)
	if len(stored) != 2 || stored[1] != "bye;reply bye" {
		t.Fatalf("unexpected stored functions %q", stored)
	}

	functions, err := m.List(ctx, testGuild)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(functions) != 2 || functions[0].Name != "ping" || functions[1].Name != "bye" {
		t.Errorf("unexpected list %+v", functions)
	}

	var bad *BadInputError
	if _, err := m.Add(ctx, testGuild, "ping", "reply again"); !errors.As(err, &bad) {
		t.Errorf("expected duplicate name to be rejected, got %v", err)
	}
	if _, err := m.Add(ctx, testGuild, "bad;name", "reply x"); !errors.As(err, &bad) {
		t.Errorf("expected ';' in name to be rejected, got %v", err)
	}
	if _, err := m.Add(ctx, testGuild, "broken", "say hi"); !errors.As(err, &bad) {
		t.Errorf("expected bad script to be rejected, got %v", err)
	}
}

func TestManagerRemove(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	long := "reply " + strings.Repeat("z", 150)

	m.Add(ctx, testGuild, "short", "reply x")
	m.Add(ctx, testGuild, "long", long)

	choices, err := m.Autocomplete(ctx, testGuild, "long")
	if err != nil || len(choices) == 0 {
		t.Fatalf("expected choices, got %v, %v", choices, err)
	}
	value := choices[0].Value
	if len(value) != MaxChoiceValue {
		t.Fatalf("expected value truncated to %d, got %d", MaxChoiceValue, len(value))
	}

	removed, err := m.Remove(ctx, testGuild, value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed.Name != "long" || removed.Script != long {
		t.Errorf("removed the wrong function: %+v", removed)
	}

	functions, _ := m.List(ctx, testGuild)
	if len(functions) != 1 || functions[0].Name != "short" {
		t.Errorf("unexpected remaining functions %+v", functions)
	}
	if _, err := m.Remove(ctx, testGuild, "long;"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("expected ErrFunctionNotFound, got %v", err)
	}
}

func TestManagerAutocompleteMultibyte(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	script := "reply " + strings.Repeat("a", 87) + strings.Repeat("\u00e9", 5)
	if _, err := m.Add(ctx, testGuild, "greet", script); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	choices, err := m.Autocomplete(ctx, testGuild, "")
	if err != nil || len(choices) != 1 {
		t.Fatalf("expected one choice, got %v, %v", choices, err)
	}
	value := choices[0].Value
	if !utf8.ValidString(value) {
		t.Fatalf("expected valid UTF-8, got %q", value)
	}
	if n := utf8.RuneCountInString(value); n != MaxChoiceValue {
		t.Errorf("expected %d characters, got %d", MaxChoiceValue, n)
	}
	if !strings.HasSuffix(value, "a\u00e9") {
		t.Errorf("expected the cut after the first accented rune, got %q", value)
	}

	removed, err := m.Remove(ctx, testGuild, value)
	if err != nil || removed.Name != "greet" {
		t.Errorf("expected greet removed, got %+v, %v", removed, err)
	}
}

func TestManagerRemoveFirstMatchWins(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	m.Add(ctx, testGuild, "dup", "reply one")
	m.Add(ctx, testGuild, "dup2", "reply two")

	removed, err := m.Remove(ctx, testGuild, "dup")
	if err != nil || removed.Name != "dup" {
		t.Errorf("expected first match 'dup', got %+v, %v", removed, err)
	}
}

func TestManagerAutocomplete(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()
	m.Add(ctx, testGuild, "zzz", "reply z")
	m.Add(ctx, testGuild, "greeting", "reply hello")
	m.Add(ctx, testGuild, "greet", "reply hi")

	choices, err := m.Autocomplete(ctx, testGuild, "greet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(choices) != 2 || choices[0].Name != "greet" || choices[1].Name != "greeting" {
		t.Errorf("unexpected choices %+v", choices)
	}
	if choices[0].Value != "greet;reply hi" {
		t.Errorf("unexpected value %q", choices[0].Value)
	}

	all, _ := m.Autocomplete(ctx, testGuild, "")
	if len(all) != 3 || all[0].Name != "zzz" {
		t.Errorf("expected every function in stored order, got %+v", all)
	}
}

func TestManagerAutocompleteLimit(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()
	var stored []string
	for i := 0; i < MaxChoices+10; i++ {
		stored = append(stored, "f;reply x")
	}
	s.SetAutoresponseFunctions(ctx, testGuild, stored)

	choices, _ := m.Autocomplete(ctx, testGuild, "")
	if len(choices) != MaxChoices {
		t.Errorf("expected %d choices, got %d", MaxChoices, len(choices))
	}
}

func TestManagerFlags(t *testing.T) {
	m, s := newManager(t)
	ctx := context.Background()

	if err := m.SetEnabled(ctx, testGuild, false); err != nil {
		t.Fatal(err)
	}
	if err := m.SetAllowImmunity(ctx, testGuild, false); err != nil {
		t.Fatal(err)
	}
	cfg, _ := s.GetGuildConfig(ctx, testGuild)
	if cfg == nil || cfg.AutoresponseEnabled || cfg.AllowAutoresponseImmunity {
		t.Errorf("unexpected config %+v", cfg)
	}

	if err := m.SetImmune(ctx, testUser, true); err != nil {
		t.Fatal(err)
	}
	im, err := m.Immunity(ctx, testUser, testGuild)
	if err != nil {
		t.Fatal(err)
	}
	if !im.Immune || im.Allowed {
		t.Errorf("expected immune and not allowed, got %+v", im)
	}

	im, _ = m.Immunity(ctx, testUser, 9999)
	if im.Allowed {
		t.Error("expected an unprovisioned guild to not allow immunity changes")
	}
}

func TestPage(t *testing.T) {
	functions := make([]Function, 23)
	for i := range functions {
		functions[i] = Function{Name: string(rune('a' + i))}
	}

	page, pages := Page(functions, 3, 10)
	if pages != 3 || len(page) != 3 || page[0].Name != "u" {
		t.Errorf("unexpected page 3: %d pages, %+v", pages, page)
	}
	page, _ = Page(functions, 99, 10)
	if len(page) != 3 {
		t.Errorf("expected out-of-range page to clamp to the last, got %d items", len(page))
	}
	page, pages = Page(nil, 1, 10)
	if pages != 1 || len(page) != 0 {
		t.Errorf("expected one empty page, got %d pages, %+v", pages, page)
	}
}
