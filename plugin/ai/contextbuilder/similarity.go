package contextbuilder

// sequenceRatio computes the classic sequence-matcher similarity of two
// strings: twice the number of matched characters over the combined length.
// Matches are found by locating the longest common substring and recursing
// into the unmatched left and right remainders.
func sequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	matched := matchingChars(a, b)
	return 2 * float64(matched) / float64(len(a)+len(b))
}

func matchingChars(a, b string) int {
	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:aStart], b[:bStart])
	total += matchingChars(a[aStart+size:], b[bStart+size:])
	return total
}

// longestCommonSubstring returns the start offsets and length of the longest
// run of bytes shared by a and b.
func longestCommonSubstring(a, b string) (aStart, bStart, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	// Rolling single-row DP over match lengths.
	row := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prevDiag := 0
		for j := 1; j <= len(b); j++ {
			saved := row[j]
			if a[i-1] == b[j-1] {
				row[j] = prevDiag + 1
				if row[j] > size {
					size = row[j]
					aStart = i - size
					bStart = j - size
				}
			} else {
				row[j] = 0
			}
			prevDiag = saved
		}
	}
	return aStart, bStart, size
}
