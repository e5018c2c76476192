package i18n

import (
	"fmt"
	"testing"
)

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvLang, "")
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestDetectLanguagePriorityAndNormalization(t *testing.T) {
	t.Run("PROPDIFF_LANG has highest priority", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv(EnvLang, "fr")
		t.Setenv("LANGUAGE", "de_DE.UTF-8")

		if got := detectLanguage(); got != "fr" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr")
		}
	})

	t.Run("LANGUAGE list takes the first entry", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "fr_CA.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")

		if got := detectLanguage(); got != "fr_CA" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_CA")
		}
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "fr_FR" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_FR")
		}
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		if got := detectLanguage(); got != "en" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "en")
		}
	})
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("Missing in target"); got != "Missing in target" {
		t.Fatalf("T fallback = %q, want %q", got, "Missing in target")
	}
	if got := N("%d key", "%d keys", 1); got != "%d key" {
		t.Fatalf("N singular fallback = %q, want %q", got, "%d key")
	}
	if got := N("%d key", "%d keys", 2); got != "%d keys" {
		t.Fatalf("N plural fallback = %q, want %q", got, "%d keys")
	}
	if got := Tf("Wrote %s", "out.properties"); got != "Wrote out.properties" {
		t.Fatalf("Tf fallback = %q", got)
	}
}

func TestFrenchCatalog(t *testing.T) {
	oldPo, oldLang := po, lang
	t.Cleanup(func() { po, lang = oldPo, oldLang })

	Init("fr_FR")
	if Language() != "fr_FR" {
		t.Fatalf("Language() = %q, want fr_FR", Language())
	}
	if got := T("Missing in target"); got != "Absentes de la cible" {
		t.Fatalf("T(Missing in target) = %q", got)
	}
	if got := fmt.Sprintf(N("%d key", "%d keys", 3), 3); got != "3 clés" {
		t.Fatalf("N(3) = %q, want %q", got, "3 clés")
	}
	if got := T("not in catalog"); got != "not in catalog" {
		t.Fatalf("untranslated passthrough = %q", got)
	}
}
