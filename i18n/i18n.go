// Package i18n translates propdiff's own user-facing strings.
//
// It wraps the gotext library with T(), N() and Tf() helpers. Catalogs are
// embedded in the binary via //go:embed and selected once at startup by
// Init().
//
// Usage:
//
//	i18n.Init("")  // PROPDIFF_LANG, then LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	fmt.Println(i18n.T("Missing in target"))
//	fmt.Println(i18n.N("%d key", "%d keys", count))
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the .po catalogs.
// Directory structure: locales/{lang}/LC_MESSAGES/propdiff.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name for propdiff.
const domain = "propdiff"

// EnvLang forces the interface language regardless of the locale settings.
const EnvLang = "PROPDIFF_LANG"

var (
	po   *gotext.Locale
	lang = "en"
)

// Init selects the interface language. An empty lang is detected from the
// environment. Init should be called once, before any T() or N() calls.
func Init(l string) {
	if l == "" {
		l = detectLanguage()
	}
	lang = l

	po = gotext.NewLocaleFSWithPath(l, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// Language returns the language chosen by Init ("en" before Init).
func Language() string {
	return lang
}

// T translates msgid, or returns it unchanged when no translation exists.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// Tf translates a format string and applies args to it.
func Tf(format string, args ...any) string {
	return fmt.Sprintf(T(format), args...)
}

// N picks and translates the plural form of a string for n. It does not
// format n; callers pass the result to fmt.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage follows GNU gettext's variable priority, with
// PROPDIFF_LANG taking precedence over all of them.
func detectLanguage() string {
	for _, env := range []string{EnvLang, "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated list; take the first
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// "fr_FR.UTF-8" -> "fr_FR"
		if idx := strings.IndexByte(val, '.'); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
