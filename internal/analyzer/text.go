package analyzer

import "strings"

// maxSignificantWords caps the lexical signal to the first N significant
// words per document so very long notes do not dominate the Jaccard union.
const maxSignificantWords = 100

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {},
	"on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "will": {}, "with": {}, "you": {}, "your": {}, "not": {},
	"can": {}, "all": {}, "we": {}, "they": {}, "their": {}, "there": {},
}

// significantWords lowercases, tokenizes and stop-word-filters a document,
// keeping at most maxSignificantWords entries in first-seen order.
func significantWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})

	seen := make(map[string]struct{}, len(fields))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		words = append(words, f)
		if len(words) >= maxSignificantWords {
			break
		}
	}
	return words
}

// jaccard computes |intersection| / |union| of two string slices.
// Returns 0 when both sides are empty.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = struct{}{}
	}
	union := len(set)
	intersection := 0
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		k := strings.ToLower(s)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
