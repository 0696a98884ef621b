package query

import (
	"sort"
	"strings"
	"unicode/utf8"

	"personfinder/internal/person/models"
)

// Score is the matched-prefix coverage of q against the person's names. Each
// query word contributes the best ratio len(word)/len(token) over name tokens
// it prefixes, so a whole-word match counts 1 and a short prefix less. Given
// and family name matches get a small bonus over alternate names.
func Score(p *models.Person, q Query) float64 {
	primary := Words(p.GivenName + " " + p.FamilyName + " " + p.FullName)
	secondary := Words(p.AlternateNames)
	var total float64
	for _, w := range q.Words {
		best := coverage(w, primary)
		if alt := coverage(w, secondary) * 0.9; alt > best {
			best = alt
		}
		total += best
	}
	return total
}

func coverage(word string, tokens []string) float64 {
	var best float64
	wl := float64(utf8.RuneCountInString(word))
	for _, t := range tokens {
		if !strings.HasPrefix(t, word) {
			continue
		}
		if c := wl / float64(utf8.RuneCountInString(t)); c > best {
			best = c
		}
	}
	return best
}

// SortByRelevance orders persons by descending Score. The sort is stable so
// equally scored records keep their incoming order.
func SortByRelevance(persons []*models.Person, q Query) {
	scores := make(map[*models.Person]float64, len(persons))
	for _, p := range persons {
		scores[p] = Score(p, q)
	}
	sort.SliceStable(persons, func(i, j int) bool {
		return scores[persons[i]] > scores[persons[j]]
	})
}
