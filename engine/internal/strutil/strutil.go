// Package strutil provides string utility functions for the engine package.
package strutil

import "strings"

// Truncate truncates a string to a maximum length.
// Uses rune-level truncation to ensure Unicode safety (correct handling of
// multi-byte characters). Returns empty string if maxLen <= 0 to prevent
// slice bounds panic.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Tokens splits a string into lowercase whitespace-separated tokens.
func Tokens(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// TokenSet returns the set of lowercase tokens in s.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard computes the token-set Jaccard overlap between two strings.
// Returns 0 when either side has no tokens.
func Jaccard(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// WordOverlap returns the fraction of reference tokens longer than minLen
// runes that also appear in other. Returns 0 when the reference has no
// qualifying tokens.
func WordOverlap(reference, other string, minLen int) float64 {
	otherSet := TokenSet(other)

	qualifying := 0
	matched := 0
	for _, tok := range Tokens(reference) {
		if len([]rune(tok)) <= minLen {
			continue
		}
		qualifying++
		if _, ok := otherSet[tok]; ok {
			matched++
		}
	}

	if qualifying == 0 {
		return 0
	}
	return float64(matched) / float64(qualifying)
}

// EditRatio computes a normalized string similarity in [0,1] based on the
// Levenshtein edit distance: 1 - distance/maxLen. Two empty strings are
// considered identical.
func EditRatio(a, b string) float64 {
	if a == b {
		return 1
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	dist := levenshtein(ra, rb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(dist)/float64(maxLen)
}

// levenshtein computes the edit distance between two rune slices using a
// two-row dynamic programming table.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost

			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
