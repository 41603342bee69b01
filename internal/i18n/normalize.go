// Package i18n holds the text normalization and the small locale tables used
// when comparing form values against stored records.
package i18n

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Normalize trims, case-folds, strips diacritics, turns punctuation into
// spaces and collapses whitespace, so "  Elvis-Presley Blvd. " and
// "elvis presley blvd" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := folder.String(stripped)
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(mapped), " ")
}

// Fold case-folds without touching punctuation or spacing beyond trimming.
func Fold(s string) string {
	return folder.String(strings.TrimSpace(s))
}
