package usecase

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"SentiPulse/internal/domain/models"
)

const (
	WordCloudSize = 20
	minWordLength = 4
)

var stopWords = map[string]struct{}{
	"about": {}, "above": {}, "after": {}, "again": {}, "against": {}, "also": {}, "amid": {},
	"been": {}, "before": {}, "being": {}, "below": {}, "between": {}, "both": {}, "could": {},
	"does": {}, "doing": {}, "down": {}, "during": {}, "each": {}, "even": {}, "from": {},
	"further": {}, "have": {}, "having": {}, "here": {}, "into": {}, "just": {}, "like": {},
	"more": {}, "most": {}, "much": {}, "must": {}, "need": {}, "news": {}, "only": {},
	"other": {}, "over": {}, "said": {}, "says": {}, "same": {}, "should": {}, "since": {},
	"some": {}, "such": {}, "than": {}, "that": {}, "their": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {}, "through": {}, "under": {},
	"until": {}, "very": {}, "were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"while": {}, "will": {}, "with": {}, "would": {}, "year": {}, "your": {},
}

// TopWords counts the words of at least four letters across texts, lowercased and without
// stop words, and returns the n most frequent. Equal counts are ordered by word.
func TopWords(texts []string, n int) []models.WordCount {
	counts := make(map[string]int)
	for _, t := range texts {
		for _, w := range strings.FieldsFunc(t, func(r rune) bool { return !unicode.IsLetter(r) }) {
			if utf8.RuneCountInString(w) < minWordLength {
				continue
			}
			w = strings.ToLower(w)
			if _, stop := stopWords[w]; stop {
				continue
			}
			counts[w]++
		}
	}

	out := make([]models.WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, models.WordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
