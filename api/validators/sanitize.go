package validators

import (
	"strings"
	"unicode"
)

// SearchTerm normalizes a free-text search value. Control characters are
// dropped, whitespace runs collapse to one space, and the result is cut to
// maxRunes without splitting a character.
func SearchTerm(input string, maxRunes int) string {
	var b strings.Builder
	space := false
	n := 0
	for _, r := range strings.TrimSpace(input) {
		if maxRunes > 0 && n >= maxRunes {
			break
		}
		switch {
		case unicode.IsSpace(r):
			if space {
				continue
			}
			space = true
			r = ' '
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			continue
		default:
			space = false
		}
		b.WriteRune(r)
		n++
	}
	return strings.TrimSpace(b.String())
}
