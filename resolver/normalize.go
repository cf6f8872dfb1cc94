package resolver

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds s for matching: compatibility decomposition with
// combining marks removed, lowercase, and every run of characters that is
// not a letter or digit collapsed to a single space.
func Normalize(s string) string {
	return strings.Join(Tokens(s), " ")
}

// Tokens splits the normalized form of s into words.
func Tokens(s string) []string {
	// transform.Chain is stateful, so it is built per call.
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}

	return strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
