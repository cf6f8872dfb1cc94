package resolver

import (
	"math"
	"slices"
	"strings"

	"github.com/agext/levenshtein"
)

// Scorer measures how close two strings are, from 0 (unrelated) to 100
// (identical after normalization).
type Scorer interface {
	Score(a, b string) int
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(a, b string) int

// Score calls f(a, b).
func (f ScorerFunc) Score(a, b string) int {
	return f(a, b)
}

// TokenScorer compares a noisy utterance against a medicine name word by
// word. The score is the better of a token-set ratio (all of the name's
// words present anywhere in the utterance scores 100) and the best
// edit-distance ratio between the name and any run of utterance words of
// about the same length, which absorbs misspellings and split or merged
// words.
type TokenScorer struct{}

// Score implements Scorer. a is the utterance, b the catalog name.
func (TokenScorer) Score(a, b string) int {
	query := Tokens(a)
	name := Tokens(b)
	if len(query) == 0 || len(name) == 0 {
		return 0
	}

	return max(tokenSetRatio(query, name), windowRatio(query, name))
}

// LevenshteinScorer compares the two normalized strings as a whole.
type LevenshteinScorer struct{}

// Score implements Scorer.
func (LevenshteinScorer) Score(a, b string) int {
	return ratio(Normalize(a), Normalize(b))
}

// ratio is the Levenshtein similarity of a and b scaled to 0..100.
func ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	return int(math.Round(levenshtein.Similarity(a, b, nil) * 100))
}

func tokenSetRatio(a, b []string) int {
	setA := uniqueSorted(a)
	setB := uniqueSorted(b)

	var common, onlyA, onlyB []string
	for _, t := range setA {
		if _, found := slices.BinarySearch(setB, t); found {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range setB {
		if _, found := slices.BinarySearch(setA, t); !found {
			onlyB = append(onlyB, t)
		}
	}

	sect := strings.Join(common, " ")
	withA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := ratio(withA, withB)
	if sect != "" {
		best = max(best, ratio(sect, withA), ratio(sect, withB))
	}
	return best
}

// windowRatio slides windows of len(name)-1 .. len(name)+1 words over the
// query and keeps the best ratio against the joined name.
func windowRatio(query, name []string) int {
	target := strings.Join(name, " ")
	best := 0

	for size := max(1, len(name)-1); size <= len(name)+1; size++ {
		if size >= len(query) {
			best = max(best, ratio(strings.Join(query, " "), target))
			break
		}
		for i := 0; i+size <= len(query); i++ {
			best = max(best, ratio(strings.Join(query[i:i+size], " "), target))
		}
	}

	return best
}

func uniqueSorted(tokens []string) []string {
	out := slices.Clone(tokens)
	slices.Sort(out)
	return slices.Compact(out)
}
