// Package propfile implements reading of Java .properties resource bundles.
//
// Format: key=value pairs, one per line. A line is structural (kept
// verbatim, never rewritten) when it is blank, starts with '#', or contains
// no '=' at all. Everything before the first '=' is the key, everything
// after it is the value; both are trimmed. Values are stored raw: escape
// sequences are only produced on write (see Escape).
//
// Duplicate keys are tolerated: the last occurrence's value wins, the first
// occurrence fixes the key's position in Keys(), and the key is reported by
// Duplicates().
//
// The File type keeps every source line so that export can reproduce the
// original structure with substituted values.
package propfile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/minios-linux/propdiff/charset"
)

// ---------------------------------------------------------------------------
// File model
// ---------------------------------------------------------------------------

// lineKind classifies each line in the file.
type lineKind int

const (
	lineBlank     lineKind = iota // blank / whitespace-only line
	lineComment                   // comment line (starts with #)
	lineMalformed                 // non-blank line without '='
	lineEntry                     // key=value pair
)

// line is a single line in the properties file.
type line struct {
	kind lineKind
	raw  string // original text without the line terminator
	key  string // only for lineEntry
}

// File represents a parsed .properties file.
type File struct {
	// lines stores all lines in document order.
	lines []line
	// values maps key → last seen value.
	values map[string]string
	// order lists keys by first occurrence.
	order []string
	// dups holds keys that occurred more than once.
	dups map[string]bool
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads a .properties file from disk, detecting its encoding.
func ParseFile(path string) (*File, charset.Encoding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, charset.UTF8, fmt.Errorf("reading %s: %w", path, err)
	}
	f, enc := ParseBytes(data)
	return f, enc, nil
}

// ParseBytes decodes raw bytes (see charset.Decode) and parses the text.
func ParseBytes(data []byte) (*File, charset.Encoding) {
	text, enc := charset.Decode(data)
	return Parse(text), enc
}

// Parse parses decoded .properties text. It never fails: lines that do
// not look like entries are kept as structural lines.
func Parse(text string) *File {
	f := &File{
		values: make(map[string]string),
		dups:   make(map[string]bool),
	}

	for _, raw := range SplitLines(text) {
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "":
			f.lines = append(f.lines, line{kind: lineBlank, raw: raw})

		case strings.HasPrefix(trimmed, "#"):
			f.lines = append(f.lines, line{kind: lineComment, raw: raw})

		case !strings.Contains(trimmed, "="):
			f.lines = append(f.lines, line{kind: lineMalformed, raw: raw})

		default:
			k, v := splitKeyValue(trimmed)
			f.lines = append(f.lines, line{kind: lineEntry, raw: raw, key: k})
			if _, exists := f.values[k]; exists {
				// Duplicate key: later value wins, first position is kept.
				f.dups[k] = true
			} else {
				f.order = append(f.order, k)
			}
			f.values[k] = v
		}
	}

	return f
}

// SplitLines splits text on "\n" or "\r\n". A trailing newline yields a
// final empty line, so joining the result with "\n" restores it. A "\r"
// that is not followed by "\n" is kept.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines)-1; i++ {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}

// Classify applies the parser's line rules to a single raw line. It
// returns the key and value and ok == true for entry lines, and ok ==
// false for structural lines (blank, '#' comment, or no '=').
func Classify(raw string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || !strings.Contains(trimmed, "=") {
		return "", "", false
	}
	key, value = splitKeyValue(trimmed)
	return key, value, true
}

// splitKeyValue splits "key = value" on the first '='. Any further '='
// characters belong to the value. Surrounding whitespace is stripped.
func splitKeyValue(s string) (key, value string) {
	k, v, _ := strings.Cut(s, "=")
	return strings.TrimSpace(k), strings.TrimSpace(v)
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns all keys in first-occurrence order.
func (f *File) Keys() []string {
	return append([]string(nil), f.order...)
}

// Len returns the number of distinct keys.
func (f *File) Len() int {
	return len(f.order)
}

// Get returns the value for key and whether it was found.
func (f *File) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Has reports whether key is defined.
func (f *File) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Values returns a copy of the key → value map.
func (f *File) Values() map[string]string {
	m := make(map[string]string, len(f.values))
	for k, v := range f.values {
		m[k] = v
	}
	return m
}

// Duplicates returns keys defined more than once, sorted.
func (f *File) Duplicates() []string {
	keys := make([]string, 0, len(f.dups))
	for k := range f.dups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lines returns the verbatim source lines in document order.
func (f *File) Lines() []string {
	out := make([]string, len(f.lines))
	for i, ln := range f.lines {
		out[i] = ln.raw
	}
	return out
}

// Stats returns the number of keys, how many of them have a non-empty
// value, and that share as a percentage. valueOf, when not nil, supplies
// the value to judge for each key in place of the file's own.
func (f *File) Stats(valueOf func(key string) string) (total, translated int, pct float64) {
	total = len(f.order)
	for _, k := range f.order {
		v := f.values[k]
		if valueOf != nil {
			v = valueOf(k)
		}
		if v != "" {
			translated++
		}
	}
	if total > 0 {
		pct = float64(translated) / float64(total) * 100
	}
	return total, translated, pct
}

// StructuralLines returns the number of blank, comment and malformed lines.
func (f *File) StructuralLines() int {
	n := 0
	for _, ln := range f.lines {
		if ln.kind != lineEntry {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// escaper rewrites the characters that cannot appear raw in a value.
// Carriage returns are dropped; '=', ':', '#' and spaces are left alone.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	"\n", `\n`,
	"\r", "",
	"\t", `\t`,
)

// Escape prepares a value for writing after "key=".
func Escape(value string) string {
	if value == "" {
		return ""
	}
	return escaper.Replace(value)
}
