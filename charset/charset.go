// Package charset detects the text encoding of .properties bundles and
// serializes exported bundles back to bytes.
//
// Detection order: UTF-8 BOM, UTF-16LE BOM, UTF-16BE BOM, strict UTF-8,
// then ISO-8859-1 as the last resort. Latin-1 decoding cannot fail, so
// Decode never returns an error.
package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies the encoding a source buffer was decoded from.
type Encoding int

const (
	// UTF8 is UTF-8 without a byte order mark.
	UTF8 Encoding = iota
	// UTF8BOM is UTF-8 preceded by EF BB BF.
	UTF8BOM
	// UTF16LE is little-endian UTF-16, detected by its FF FE mark.
	UTF16LE
	// UTF16BE is big-endian UTF-16, detected by its FE FF mark.
	UTF16BE
	// Latin1 is ISO-8859-1, the fallback for input that is not valid UTF-8.
	Latin1
)

// String returns the label shown to users.
func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "UTF-8"
	case UTF8BOM:
		return "UTF-8-BOM"
	case UTF16LE:
		return "UTF-16LE"
	case UTF16BE:
		return "UTF-16BE"
	case Latin1:
		return "ISO-8859-1"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode converts raw bytes to text and reports which encoding was used.
// A byte-order mark, when present, is stripped from the result.
func Decode(data []byte) (string, Encoding) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), UTF8BOM
	case bytes.HasPrefix(data, bomUTF16LE):
		if s, ok := decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), data[2:]); ok {
			return s, UTF16LE
		}
	case bytes.HasPrefix(data, bomUTF16BE):
		if s, ok := decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), data[2:]); ok {
			return s, UTF16BE
		}
	case utf8.Valid(data):
		return string(data), UTF8
	}
	// Every byte is a valid ISO-8859-1 code point.
	s, _ := decodeWith(charmap.ISO8859_1, data)
	return s, Latin1
}

func decodeWith(enc encoding.Encoding, data []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// ---------------------------------------------------------------------------
// Compatibility check
// ---------------------------------------------------------------------------

// MaxLatin1 is the highest code point representable in ISO-8859-1.
const MaxLatin1 = 0xFF

// Unsupported returns the distinct code points in s that cannot be
// represented in ISO-8859-1, in order of first appearance. It returns nil
// when every character is representable.
func Unsupported(s string) []rune {
	var out []rune
	seen := make(map[rune]bool)
	for _, r := range s {
		if r <= MaxLatin1 || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// FormatRunes renders runes as `'日' (U+65E5)` pairs for messages.
func FormatRunes(rs []rune) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("'%c' (U+%04X)", r, r)
	}
	return strings.Join(parts, ", ")
}

// ---------------------------------------------------------------------------
// Output charsets
// ---------------------------------------------------------------------------

// Charset is the byte encoding used when writing an exported bundle.
type Charset int

const (
	// CharsetLatin1 writes ISO-8859-1, the classic .properties encoding.
	CharsetLatin1 Charset = iota
	// CharsetUTF8 writes UTF-8.
	CharsetUTF8
)

// String returns the canonical charset name.
func (c Charset) String() string {
	if c == CharsetUTF8 {
		return "UTF-8"
	}
	return "ISO-8859-1"
}

// ParseCharset maps a user-supplied name to a Charset.
func ParseCharset(name string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return CharsetLatin1, nil
	case "utf-8", "utf8":
		return CharsetUTF8, nil
	}
	return CharsetLatin1, fmt.Errorf("unknown charset %q (use latin1 or utf-8)", name)
}

// MediaType returns the declared media type for exported files.
func MediaType(c Charset) string {
	return "text/plain; charset=" + c.String()
}

// Encode serializes text in the given charset. For ISO-8859-1, characters
// above U+00FF are replaced with the encoder's substitution byte rather
// than failing the whole export; use Unsupported to warn about them first.
func Encode(text string, c Charset) ([]byte, error) {
	if c == CharsetUTF8 {
		return []byte(text), nil
	}
	out, err := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()).Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c, err)
	}
	return out, nil
}
