// Package rouge implements the ROUGE-1 and ROUGE-L lexical overlap metrics
// used to compare a candidate answer against a reference answer. Scores are
// F1 values in [0, 1].
package rouge

import (
	"strings"
	"unicode"
)

// Scores holds the metric values for one candidate/reference pair.
type Scores struct {
	Rouge1 float64 `json:"rouge_1"`
	RougeL float64 `json:"rouge_l"`
}

// Compute returns both ROUGE scores for a candidate against a reference.
func Compute(candidate, reference string) Scores {
	return Scores{
		Rouge1: Rouge1(candidate, reference),
		RougeL: RougeL(candidate, reference),
	}
}

// Rouge1 computes the unigram-overlap F1 score. Token counts are clipped, so
// a repeated candidate token only matches as many times as it appears in the
// reference.
func Rouge1(candidate, reference string) float64 {
	cand := Tokenize(candidate)
	ref := Tokenize(reference)
	if len(cand) == 0 || len(ref) == 0 {
		return 0
	}

	refCounts := make(map[string]int, len(ref))
	for _, tok := range ref {
		refCounts[tok]++
	}

	overlap := 0
	for _, tok := range cand {
		if refCounts[tok] > 0 {
			refCounts[tok]--
			overlap++
		}
	}

	return f1(overlap, len(cand), len(ref))
}

// RougeL computes the longest-common-subsequence F1 score. Unlike ROUGE-1 it
// rewards in-order matches, so word order matters.
func RougeL(candidate, reference string) float64 {
	cand := Tokenize(candidate)
	ref := Tokenize(reference)
	if len(cand) == 0 || len(ref) == 0 {
		return 0
	}

	lcs := lcsLength(cand, ref)
	return f1(lcs, len(cand), len(ref))
}

// Tokenize lowercases the text and splits it into alphanumeric word tokens.
// Punctuation is treated as a separator, matching the tokenization used by
// the standard ROUGE implementations.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// lcsLength computes the length of the longest common subsequence between
// two token slices using a two-row dynamic program.
func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// f1 computes the harmonic mean of precision (matches/candidate length) and
// recall (matches/reference length).
func f1(matches, candLen, refLen int) float64 {
	if matches == 0 {
		return 0
	}
	precision := float64(matches) / float64(candLen)
	recall := float64(matches) / float64(refLen)
	return 2 * precision * recall / (precision + recall)
}
