// Package similarity scores how alike two merchant strings are using normalized edit distance.
package similarity

import (
	"strings"
)

// DefaultThreshold is the minimum score for two names to be considered the same merchant.
const DefaultThreshold = 0.7

// Normalize uppercases s, collapses whitespace runs to one space, and trims it.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Similarity returns a score in [0,1] where 1 means the normalized strings are equal.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	ra, rb := []rune(na), []rune(nb)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}

	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

// IsSimilar reports whether a and b score at least threshold.
func IsSimilar(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// FindBestMatch returns the candidate scoring highest against query, provided it clears threshold.
// Ties keep the first candidate encountered.
func FindBestMatch(query string, candidates []string, threshold float64) (string, float64, bool) {
	best := ""
	bestScore := 0.0
	found := false

	for _, candidate := range candidates {
		score := Similarity(query, candidate)
		if score < threshold {
			continue
		}
		if !found || score > bestScore {
			best = candidate
			bestScore = score
			found = true
		}
	}

	return best, bestScore, found
}

// levenshtein computes the edit distance between a and b with unit costs.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
