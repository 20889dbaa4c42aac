// Package distance provides the vector distance functions used by the
// similarity indexes.
//
// Every function returns a distance: 0 means identical and larger values mean
// more dissimilar. This is the direction the deduplication threshold is
// applied in.
//
// # Supported Metrics
//
//   - MetricL2: Squared Euclidean distance (default)
//   - MetricCosine: 1 - cosine similarity
//   - MetricDot: 1 - dot product (for vectors that are already L2-normalized)
//
// # Usage
//
//	dist := distance.SquaredL2(a, b)
//	fn, _ := distance.Provider(distance.MetricCosine)
//	normalized, ok := distance.NormalizeL2Copy(vec)
package distance
