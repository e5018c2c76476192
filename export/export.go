// Package export rebuilds a translated bundle from the baseline's lines.
//
// The baseline drives the output: its comments, blank lines and
// unparseable lines are copied verbatim and in order, and each entry line
// becomes "key=value" with the key's effective translation. The target
// file contributes values only; its own layout is discarded.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minios-linux/propdiff/propfile"
)

// ErrUnknownMode indicates an unsupported export mode name.
var ErrUnknownMode = errors.New("unknown export mode")

// Mode selects which entry lines are written.
type Mode int

const (
	// ModeAll writes every entry line.
	ModeAll Mode = iota
	// ModeMissingOnly writes only entries whose effective value is empty.
	ModeMissingOnly
)

// String returns the mode name as accepted by ParseMode.
func (m Mode) String() string {
	if m == ModeMissingOnly {
		return "missing-only"
	}
	return "all"
}

// ParseMode parses "all", "missing" or "missing-only".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ModeAll, nil
	case "missing", "missing-only", "missing_only":
		return ModeMissingOnly, nil
	}
	return ModeAll, fmt.Errorf("%w: %q (use all or missing-only)", ErrUnknownMode, s)
}

// FileName returns the download name for a French export.
func FileName(m Mode) string {
	return FileNameFor(m, "fr")
}

// FileNameFor returns the download name for an export of lang.
func FileNameFor(m Mode, lang string) string {
	if m == ModeMissingOnly {
		return "Bundle_" + lang + "_missing_only.properties"
	}
	return "Bundle_" + lang + "_updated.properties"
}

// Lookup returns explicitly saved values. *store.Store satisfies it.
type Lookup interface {
	Get(key string) (string, bool)
}

// Effective resolves the value shown and exported for key: a saved value
// (even an empty one) wins, then the target's value, then "".
func Effective(key string, saved Lookup, target *propfile.File) string {
	if saved != nil {
		if v, ok := saved.Get(key); ok {
			return v
		}
	}
	if target != nil {
		if v, ok := target.Get(key); ok {
			return v
		}
	}
	return ""
}

// Export renders the output text for the baseline lines. Lines are joined
// with "\n"; a baseline ending in a newline yields output ending in one.
func Export(mode Mode, lines []string, saved Lookup, target *propfile.File) string {
	out := make([]string, 0, len(lines))
	for _, raw := range lines {
		key, _, ok := propfile.Classify(raw)
		if !ok {
			out = append(out, raw)
			continue
		}
		value := propfile.Escape(Effective(key, saved, target))
		if mode == ModeMissingOnly && value != "" {
			continue
		}
		out = append(out, key+"="+value)
	}
	return strings.Join(out, "\n")
}

// Preview renders the full export for display.
func Preview(lines []string, saved Lookup, target *propfile.File) string {
	return Export(ModeAll, lines, saved, target)
}
