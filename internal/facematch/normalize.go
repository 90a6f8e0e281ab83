package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeText normalizes free text for comparison (lowercase, no diacritics, single spaces).
func NormalizeText(s string) string {
	s = RemoveDiacritics(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// IdentityKey derives the stable identity key from a user-supplied display name.
// Surrounding whitespace is trimmed and inner whitespace becomes underscores,
// so "Jan  Novák" is stored as "Jan_Novák". Different display names may collide.
func IdentityKey(displayName string) string {
	return strings.Join(strings.Fields(displayName), "_")
}

// DisplayName reverses IdentityKey for presentation.
func DisplayName(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
