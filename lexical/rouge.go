package lexical

// LCS returns the length of the longest common subsequence of a and b.
func LCS(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) > len(a) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// FMeasure returns the ROUGE-L F-measure of two token sequences.
func FMeasure(candidate, reference []string) float64 {
	if len(candidate) == 0 || len(reference) == 0 {
		return 0
	}

	lcs := LCS(candidate, reference)
	if lcs == 0 {
		return 0
	}

	precision := float64(lcs) / float64(len(candidate))
	recall := float64(lcs) / float64(len(reference))

	return 2 * precision * recall / (precision + recall)
}

// RougeL tokenizes both strings and returns their ROUGE-L F-measure.
func RougeL(candidate, reference string) float64 {
	return FMeasure(Tokenize(candidate), Tokenize(reference))
}
