package texts

import (
	"strings"
	"testing"
)

func TestLookupLanguages(t *testing.T) {
	en := Lookup(MessageSent, "en")
	ru := Lookup(MessageSent, "ru")
	if en == "" || ru == "" {
		t.Fatal("builtin texts must exist in both languages")
	}
	if en == ru {
		t.Fatal("en and ru texts should differ")
	}
	// Unknown languages fall back to English.
	if Lookup(MessageSent, "de") != en {
		t.Fatal("unknown language should fall back to en")
	}
	if Lookup(Code("nope"), "en") != "" {
		t.Fatal("unknown code should yield empty string")
	}
}

func TestCodesCoverBuiltinTable(t *testing.T) {
	codes := Codes()
	if len(codes) != len(builtin) {
		t.Fatalf("Codes() returned %d entries, table has %d", len(codes), len(builtin))
	}
	for _, code := range codes {
		entry, ok := Builtin(code)
		if !ok {
			t.Fatalf("code %q missing from table", code)
		}
		if entry.EN == "" || entry.RU == "" {
			t.Fatalf("code %q has an empty translation", code)
		}
	}
}

func TestPlaceholderTexts(t *testing.T) {
	for _, code := range []Code{UserStartedBot, UserStoppedBot, WelcomeMessage} {
		entry, _ := Builtin(code)
		if !strings.Contains(entry.EN, "%s") || !strings.Contains(entry.RU, "%s") {
			t.Fatalf("code %q must carry a name placeholder in both languages", code)
		}
	}
}
