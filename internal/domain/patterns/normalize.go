package patterns

import (
	"strings"
	"unicode"
)

// Normalize reduces a raw bank description to a token-comparable form:
// lower-cased, stripped of characters outside [a-z0-9 -], with whitespace
// runs collapsed to single spaces. Total and idempotent; empty input yields
// an empty string.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
