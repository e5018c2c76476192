// Package textnorm replaces typographic punctuation and exotic spacing
// with plain characters that survive an ISO-8859-1 export.
//
// Normalization runs while a value is being edited, so it also carries a
// caret or selection through the rewrite. Offsets are counted in code
// points, not bytes.
package textnorm

import (
	"strings"
	"unicode/utf8"
)

// Selection is a caret (Start == End) or a selected range, in code points.
type Selection struct {
	Start int
	End   int
}

// substitutions maps each replaced code point to its plain form. An empty
// replacement deletes the character. No replacement contains a key of the
// table, which keeps Normalize idempotent.
var substitutions = map[rune]string{
	// Single quotes, apostrophes, primes.
	'‘': "'", '’': "'", '‚': "'", '‛': "'",
	'′': "'", '‵': "'",

	// Double quotes and double primes.
	'“': `"`, '”': `"`, '„': `"`, '‟': `"`,
	'″': `"`, '‶': `"`,

	// Hyphens and dashes.
	'‐': "-", '‑': "-", '‒': "-", '–': "-",
	'—': "-", '―': "-", '−': "-",

	'…': "...",

	// Spaces outside Latin-1.
	'\u2000': " ", '\u2001': " ", '\u2002': " ", '\u2003': " ",
	'\u2004': " ", '\u2005': " ", '\u2006': " ", '\u2007': " ",
	'\u2008': " ", '\u2009': " ", '\u200A': " ", '\u202F': " ",
	'\u205F': " ", '\u3000': " ",

	// Zero-width characters.
	'\u200B': "", '\u200C': "", '\u200D': "", '\u2060': "", '\uFEFF': "",
}

// Replacement returns the substitution for r and whether one exists.
func Replacement(r rune) (string, bool) {
	s, ok := substitutions[r]
	return s, ok
}

// Normalize rewrites s and moves sel so that it points at the same place
// in the result. A boundary moves by the length change of every
// substitution that lies strictly before it.
func Normalize(s string, sel Selection) (string, Selection) {
	n := utf8.RuneCountInString(s)
	start, end := clamp(sel.Start, n), clamp(sel.End, n)

	var b strings.Builder
	b.Grow(len(s))

	newStart, newEnd := start, end
	pos := 0
	for _, r := range s {
		rep, ok := Replacement(r)
		if !ok {
			b.WriteRune(r)
			pos++
			continue
		}
		b.WriteString(rep)
		if delta := utf8.RuneCountInString(rep) - 1; delta != 0 {
			if start > pos {
				newStart += delta
			}
			if end > pos {
				newEnd += delta
			}
		}
		pos++
	}

	return b.String(), Selection{Start: newStart, End: newEnd}
}

// String normalizes s without tracking a selection.
func String(s string) string {
	if !NeedsNormalization(s) {
		return s
	}
	out, _ := Normalize(s, Selection{})
	return out
}

// NeedsNormalization reports whether s contains any replaced character.
func NeedsNormalization(s string) bool {
	for _, r := range s {
		if _, ok := Replacement(r); ok {
			return true
		}
	}
	return false
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}
