package usecase

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// spanishStopWords are dropped before keyword and fuzzy comparison.
// "sin" and "con" are kept: they change which product is meant.
var spanishStopWords = map[string]bool{
	"de": true, "del": true, "la": true, "las": true, "el": true,
	"los": true, "lo": true, "y": true, "e": true, "en": true,
	"al": true, "a": true, "para": true, "por": true, "un": true,
	"una": true, "unos": true, "unas": true, "uno": true,
}

// contentTokens splits a normalized key into tokens without stop words and
// pure numbers.
func contentTokens(key string) []string {
	var tokens []string
	for _, word := range strings.Fields(key) {
		if spanishStopWords[word] || isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// isNumeric checks if a string contains only digits
func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are similar within the edit distance threshold
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}

	// Only apply fuzzy matching to tokens of 4+ runes to avoid false positives
	l1, l2 := utf8.RuneCountInString(token1), utf8.RuneCountInString(token2)
	if l1 < 4 || l2 < 4 {
		return false
	}

	lenDiff := l1 - l2
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}

	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// ratio is the normalized Levenshtein similarity of a and b in [0,1].
func ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longest)
}

// tokenSetRatio compares two token lists ignoring order and duplicates.
// The shared tokens are compared against each side's full sorted token set
// and the best of the three pairings wins, so a phrase that is a token
// subset of the other scores 1.
func tokenSetRatio(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	var common, onlyA, onlyB []string
	for t := range setA {
		if setB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if !setA[t] {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := ratio(withA, withB)
	if base != "" {
		best = max(best, ratio(base, withA), ratio(base, withB))
	}
	return best
}

// isSubset reports whether every token of sub appears in super.
func isSubset(sub, super []string) bool {
	if len(sub) == 0 {
		return false
	}
	set := toSet(super)
	for _, t := range sub {
		if !set[t] {
			return false
		}
	}
	return true
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
