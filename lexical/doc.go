// Package lexical scores lexical overlap between instructions with ROUGE-L.
//
// ROUGE-L is the F-measure of the longest common subsequence (LCS) of two
// token sequences:
//
//	P = lcs/len(candidate), R = lcs/len(reference), F = 2PR/(P+R)
//
// which reduces to 2*lcs/(len(candidate)+len(reference)). Text is tokenized by
// lowercasing, replacing every run of characters outside [a-z0-9] with a
// space and splitting on whitespace. Empty token sequences score 0.
//
// # Scorer
//
// Scorer keeps the reference set of admitted instructions and fans a single
// candidate out across a bounded worker pool:
//
//	s := lexical.New(func(o *lexical.Options) { o.Workers = 4 })
//	s.Add("Give three tips for staying healthy.")
//	best, err := s.MaxOverlap(ctx, "Give three tips for staying fit.")
//
// References that share no token with the candidate have an LCS of 0 and are
// skipped by a postings prefilter kept in roaring bitmaps.
package lexical
