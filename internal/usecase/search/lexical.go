package search

import "strings"

// lexicalScore returns the fraction of query terms contained in the candidate
// text, in [0, 1]. Terms are whitespace-split and lower-cased; matching is
// plain substring containment, not token-boundary aware.
func lexicalScore(query, text string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}

	haystack := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
