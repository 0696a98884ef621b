// Package query normalises search text and ranks person records against it.
package query

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"personfinder/internal/person/models"
)

// Query is a parsed search string.
type Query struct {
	Raw   string
	Words []string
}

// Parse folds raw into normalised, de-duplicated words.
func Parse(raw string) Query {
	return Query{Raw: raw, Words: Words(raw)}
}

// Valid reports whether at least one word is long enough to search on.
func (q Query) Valid(minWordLength int) bool {
	for _, w := range q.Words {
		if len([]rune(w)) >= minWordLength {
			return true
		}
	}
	return false
}

// Key is a stable cache key for the query.
func (q Query) Key() string {
	return strings.Join(q.Words, " ")
}

// Normalize lowercases s, strips diacritics and replaces punctuation with spaces.
func Normalize(s string) string {
	folder := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, folded)
}

// Words splits s into normalised words, dropping duplicates.
func Words(s string) []string {
	fields := strings.Fields(Normalize(s))
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// NameTokens are the searchable words of a person's names.
func NameTokens(p *models.Person) []string {
	return Words(strings.Join([]string{p.GivenName, p.FamilyName, p.FullName, p.AlternateNames}, " "))
}

// AllTokens adds the home address and description to the name tokens.
func AllTokens(p *models.Person) []string {
	return Words(strings.Join([]string{
		p.GivenName, p.FamilyName, p.FullName, p.AlternateNames,
		p.HomeStreet, p.HomeNeighborhood, p.HomeCity, p.HomeState,
		p.HomePostalCode, p.HomeCountry, p.Description,
	}, " "))
}

// Matches reports whether every query word prefixes at least one token.
func Matches(tokens []string, q Query) bool {
	if len(q.Words) == 0 {
		return false
	}
	for _, w := range q.Words {
		if !prefixesAny(w, tokens) {
			return false
		}
	}
	return true
}

func prefixesAny(word string, tokens []string) bool {
	for _, t := range tokens {
		if strings.HasPrefix(t, word) {
			return true
		}
	}
	return false
}
