package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldDiacritics removes combining marks so "Hôpital Général" becomes "Hopital General".
func FoldDiacritics(s string) string {
	// transform.Chain keeps state between calls, so each call builds its own
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// NormalizeText lowercases, folds diacritics, turns every non letter/digit rune into a
// space and collapses runs of spaces. The result is suitable for keyword matching.
func NormalizeText(s string) string {
	folded := strings.ToLower(FoldDiacritics(s))

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// ContainsWord reports whether normalized text contains keyword at a word boundary.
// Both arguments must already be normalized. The keyword may span several words and
// matches as a prefix of the last word, so "clinique" also matches "cliniques".
func ContainsWord(text, keyword string) bool {
	if keyword == "" || text == "" {
		return false
	}
	return strings.Contains(" "+text, " "+keyword)
}

// ContainsAnyWord reports whether text matches any of keywords via ContainsWord.
func ContainsAnyWord(text string, keywords []string) bool {
	for _, kw := range keywords {
		if ContainsWord(text, kw) {
			return true
		}
	}
	return false
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
