package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases text and strips diacritics. Marker phrases and page text
// are both folded before comparison so accent and case drift in the portal's
// copy does not break classification.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// ContainsFolded reports whether haystack contains needle after folding both.
func ContainsFolded(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), Fold(needle))
}

// NormalizeName returns the NFC form of scraped text with surrounding
// whitespace trimmed and internal runs collapsed to single spaces.
func NormalizeName(text string) string {
	text = norm.NFC.String(strings.TrimSpace(text))
	return strings.Join(strings.Fields(text), " ")
}
