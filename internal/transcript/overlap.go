package transcript

import (
	"context"
	"strings"
	"unicode"
)

// OverlapMerger is the local merge engine. It finds the longest run of words
// that ends the existing text and reappears in the fragment, and appends only
// what follows that run. A run found mid-fragment must be at least minRun
// words long. A fragment of at least minRun words already contained in the
// existing text leaves it unchanged; a single repeated word such as "yes" is
// new speech unless it is the last word shown.
// Words are compared case-insensitively with punctuation ignored.
type OverlapMerger struct{}

// minRun is the shortest run of words that counts as repeated text when it is
// not anchored at the end of the buffer
const minRun = 2

// Merge implements Merger
func (OverlapMerger) Merge(_ context.Context, existing, fragment string) (string, error) {
	return MergeOverlap(existing, fragment), nil
}

// MergeOverlap joins existing and fragment without repeating their overlap
func MergeOverlap(existing, fragment string) string {
	old := strings.Fields(existing)
	add := strings.Fields(fragment)
	if len(add) == 0 {
		return strings.Join(old, " ")
	}
	if len(old) == 0 {
		return strings.Join(add, " ")
	}

	oldKeys := normalizeWords(old)
	addKeys := normalizeWords(add)

	if len(addKeys) >= minRun && containsRun(oldKeys, addKeys) {
		return strings.Join(old, " ")
	}

	cut := overlapEnd(oldKeys, addKeys)
	merged := make([]string, 0, len(old)+len(add)-cut)
	merged = append(merged, old...)
	merged = append(merged, add[cut:]...)
	return strings.Join(merged, " ")
}

// overlapEnd returns the index in b just past the longest run of b that equals
// a suffix of a, or 0 when there is none.
func overlapEnd(a, b []string) int {
	bestK, bestEnd := 0, 0
	for p := 0; p < len(b); p++ {
		maxK := len(a)
		if len(b)-p < maxK {
			maxK = len(b) - p
		}
		for k := maxK; k > bestK; k-- {
			if p > 0 && k < minRun {
				break
			}
			if equalWords(a[len(a)-k:], b[p:p+k]) {
				bestK, bestEnd = k, p+k
				break
			}
		}
	}
	return bestEnd
}

// containsRun reports whether needle appears as a contiguous run inside haystack.
func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return len(needle) == 0
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalWords(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func normalizeWords(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		}))
	}
	return out
}
