package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slug turns a mosque or file name into a lowercase ASCII identifier safe
// for object keys and MQTT topics: "Masjid Al-Aqsá" becomes "masjid-al-aqsa".
// It returns "" when nothing usable remains.
func Slug(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = cases.Lower(language.Und).String(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case r == '.' && b.Len() > 0:
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(b.String(), "-.")
}

// MosqueKey is the lookup key for a mosque name: its Slug, or the trimmed
// name when the slug is empty. "East London Mosque" and "east-london-mosque"
// share a key, so screens can address a mosque by its topic slug.
func MosqueKey(name string) string {
	if s := Slug(name); s != "" {
		return s
	}
	return strings.TrimSpace(name)
}
