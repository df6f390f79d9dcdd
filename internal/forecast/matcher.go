package forecast

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-sms/internal/similarity"
)

// MerchantMatcher decides whether a transaction's merchant belongs to a rule's merchant pattern.
type MerchantMatcher interface {
	Matches(pattern, merchant string) bool
}

// Matcher names accepted by ParseMatcher.
const (
	MatcherContains   = "contains"
	MatcherSimilarity = "similarity"
)

// ContainsMatcher matches when either string contains the other, ignoring case and spacing.
type ContainsMatcher struct{}

// Matches implements MerchantMatcher.
func (ContainsMatcher) Matches(pattern, merchant string) bool {
	p, m := similarity.Normalize(pattern), similarity.Normalize(merchant)
	if p == "" || m == "" {
		return false
	}
	return strings.Contains(m, p) || strings.Contains(p, m)
}

// SimilarityMatcher matches when the normalized names score at least Threshold.
type SimilarityMatcher struct {
	Threshold float64
}

// Matches implements MerchantMatcher.
func (s SimilarityMatcher) Matches(pattern, merchant string) bool {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = similarity.DefaultThreshold
	}
	return similarity.IsSimilar(pattern, merchant, threshold)
}

// ParseMatcher returns the matcher with the given name. An empty name selects ContainsMatcher.
func ParseMatcher(name string, threshold float64) (MerchantMatcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MatcherContains:
		return ContainsMatcher{}, nil
	case MatcherSimilarity:
		return SimilarityMatcher{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown merchant matcher %q (want %s or %s)", name, MatcherContains, MatcherSimilarity)
	}
}
