package service

import (
	"personfinder/internal/search/query"
)

// SpamScorer rates note text between 0 (clean) and 1.
type SpamScorer interface {
	Score(text string, badWords []string) float64
}

// KeywordScorer scores the fraction of words that appear in the bad word list.
type KeywordScorer struct{}

func (KeywordScorer) Score(text string, badWords []string) float64 {
	words := query.Words(text)
	if len(words) == 0 || len(badWords) == 0 {
		return 0
	}
	bad := make(map[string]struct{}, len(badWords))
	for _, w := range badWords {
		for _, n := range query.Words(w) {
			bad[n] = struct{}{}
		}
	}
	var hits int
	for _, w := range words {
		if _, ok := bad[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(words))
}
