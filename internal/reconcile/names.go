// Package reconcile links person records across the wiki and
// parliamentary-API populations: deterministic name scoring, manual
// overrides and an acceptance policy that turns near-misses into
// auditable pending assertions instead of silent guesses.
package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName lowercases, collapses whitespace, decomposes diacritics
// (NFKD, combining marks dropped) and strips punctuation. "Müller" and
// "Muller" normalize identically; "Mueller" does not, which is what the
// umlaut-folded comparison is for.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), " ")
	name = norm.NFKD.String(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var umlautFolder = strings.NewReplacer(
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
	"ß", "ss",
	"Ä", "Ae",
	"Ö", "Oe",
	"Ü", "Ue",
)

// FoldUmlauts rewrites German umlauts and sharp s into their digraph
// spellings. Applied after NormalizeName the umlauts are already bare
// vowels, so in practice this folds ß/ss spelling variants.
func FoldUmlauts(s string) string {
	return umlautFolder.Replace(s)
}

// SplitNameParts splits a display name into given name (first token),
// family name (last token) and suffix (everything in between). A
// single-token name is all given name.
func SplitNameParts(name string) (given, family, suffix string) {
	parts := strings.Fields(name)
	switch {
	case len(parts) >= 2:
		given = parts[0]
		family = parts[len(parts)-1]
		if len(parts) > 2 {
			suffix = strings.Join(parts[1:len(parts)-1], " ")
		}
	case len(parts) == 1:
		given = parts[0]
	}
	return given, family, suffix
}
