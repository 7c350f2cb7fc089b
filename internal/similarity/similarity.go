// Package similarity computes normalized string similarity ratios.
package similarity

import "strings"

// Ratio returns a similarity ratio in [0, 1] between two strings using
// longest-matching-block sequence comparison: 2*M/T, where M is the total
// number of matched characters across recursively matched blocks and T is
// the combined length of both strings. Comparison is case-sensitive; callers
// that want case-insensitive matching should use Similar.
func Ratio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	matched := matchLen(ra, rb)
	return 2.0 * float64(matched) / float64(total)
}

// Similar reports whether two strings are similar at or above the given
// threshold. Returns false if either string is empty. Comparison is
// case-insensitive.
func Similar(a, b string, threshold float64) bool {
	if a == "" || b == "" {
		return false
	}
	return Ratio(strings.ToLower(a), strings.ToLower(b)) >= threshold
}

// matchLen returns the total matched character count: the longest common
// block, plus matches recursively found to its left and right.
func matchLen(a, b []rune) int {
	ai, bi, size := longestBlock(a, b)
	if size == 0 {
		return 0
	}
	n := size
	n += matchLen(a[:ai], b[:bi])
	n += matchLen(a[ai+size:], b[bi+size:])
	return n
}

// longestBlock finds the longest contiguous block common to a and b,
// returning its start in a, start in b, and length. Earliest block wins
// ties, matching standard sequence-matcher behavior.
func longestBlock(a, b []rune) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0

	// row[j] holds the length of the common suffix ending at a[i], b[j].
	// Sweeping j in descending order lets row[j-1] still carry the value
	// for the previous i when row[j] is computed.
	row := make([]int, len(b))

	for i := 0; i < len(a); i++ {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] != b[j] {
				row[j] = 0
				continue
			}
			if j == 0 {
				row[j] = 1
			} else {
				row[j] = row[j-1] + 1
			}
			startA := i - row[j] + 1
			startB := j - row[j] + 1
			if row[j] > bestSize ||
				(row[j] == bestSize && (startA < bestA || (startA == bestA && startB < bestB))) {
				bestSize = row[j]
				bestA = startA
				bestB = startB
			}
		}
	}

	return bestA, bestB, bestSize
}
