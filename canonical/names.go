package canonical

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name is an athlete name pair in normalised order: the two parts are
// sorted case-insensitively so "John Smith" and "Smith John" compare equal.
type Name struct {
	First string
	Last  string
}

// NormalizeName cleans both parts and orders them.
func NormalizeName(a, b string) Name {
	a, b = cleanPart(a), cleanPart(b)
	if fold(a) <= fold(b) {
		return Name{First: a, Last: b}
	}
	return Name{First: b, Last: a}
}

// Key is the order- and case-independent identity of the name.
func (n Name) Key() string {
	return fold(n.First) + "|" + fold(n.Last)
}

// Slug is the URL form of the name.
func (n Name) Slug() string {
	return Slugify(n.First + " " + n.Last)
}

// DedupKey identifies an athlete across imports: name pair, gender and country.
func DedupKey(first, last, gender, country string) string {
	return NormalizeName(first, last).Key() + "|" + strings.ToUpper(strings.TrimSpace(gender)) +
		"|" + strings.ToUpper(strings.TrimSpace(country))
}

// Slugify lowercases s, strips diacritics and joins alphanumeric runs with '-'.
// An empty result falls back to "athlete".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "athlete"
	}
	return b.String()
}

func cleanPart(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func fold(s string) string {
	return cases.Fold().String(s)
}
