package autocomplete

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Similarity modes accepted by NewMatcher
const (
	SimilarityDistance = "distance"
	SimilarityRatio    = "ratio"
)

// Matcher reports whether two prefixes are close enough to count as the same
// search topic
type Matcher func(a, b string) bool

// Levenshtein computes the edit distance between two strings, rune-wise
func Levenshtein(a, b string) int {
	return fuzzy.LevenshteinDistance(a, b)
}

// Ratio is the normalized similarity 1 - distance/maxLen, in [0, 1]
func Ratio(a, b string) float64 {
	maxLen := max(len([]rune(a)), len([]rune(b)))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}

// DistanceMatcher treats prefixes within maxDistance edits as similar
func DistanceMatcher(maxDistance int) Matcher {
	return func(a, b string) bool {
		return Levenshtein(a, b) <= maxDistance
	}
}

// RatioMatcher treats prefixes whose Ratio exceeds minRatio as similar
func RatioMatcher(minRatio float64) Matcher {
	return func(a, b string) bool {
		return Ratio(a, b) > minRatio
	}
}

// NewMatcher builds a matcher from its configuration name
func NewMatcher(mode string, maxDistance int, minRatio float64) (Matcher, error) {
	switch strings.ToLower(mode) {
	case "", SimilarityDistance:
		return DistanceMatcher(maxDistance), nil
	case SimilarityRatio:
		return RatioMatcher(minRatio), nil
	default:
		return nil, fmt.Errorf("unknown similarity mode %q", mode)
	}
}
