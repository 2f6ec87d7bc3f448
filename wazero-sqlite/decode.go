package sqlite

import (
	"strings"
	"unicode/utf8"
)

// shortStringLen is the longest input decoded rune by rune.
// Error messages and identifiers are usually at or below it.
const shortStringLen = 16

// decodeString converts UTF-8 bytes read from linear memory to a string.
// Invalid sequences become U+FFFD, one per byte that does not start a valid
// sequence, regardless of input length.
func decodeString(b []byte) string {
	if len(b) <= shortStringLen {
		return decodeShort(b)
	}
	return decodeBulk(b)
}

// decodeShort decodes one codepoint at a time.
func decodeShort(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		c := b[0]
		if c < utf8.RuneSelf {
			sb.WriteByte(c)
			b = b[1:]
			continue
		}
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}

// decodeBulk converts valid input with a single copy and falls back to the
// per-codepoint loop for input that needs replacement characters.
func decodeBulk(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return decodeShort(b)
}
