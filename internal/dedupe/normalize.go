// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedupe

import (
	"strings"
	"unicode"
)

// NormalizeTitle reduces a title to its comparison form: case-folded,
// punctuation stripped, whitespace collapsed to single spaces. Two records
// whose normalized titles are equal are title-match candidates.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	space := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			// Punctuation and whitespace both act as word separators.
			space = true
		}
	}
	return b.String()
}

// yearsCompatible reports whether two publication years can denote the same
// work: equal within tolerance, or either unknown (zero). Tolerance absorbs
// preprint-vs-published skew.
func yearsCompatible(a, b, tolerance int) bool {
	if a == 0 || b == 0 {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
