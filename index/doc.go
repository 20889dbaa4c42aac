// Package index provides the nearest-neighbor stores used for semantic
// deduplication.
//
// Three vector index backends satisfy VectorIndex:
//
//   - flat: exact brute-force search (default, exact distances)
//   - hnsw: Hierarchical Navigable Small World graph for approximate search
//   - weaviate: a remote Weaviate class with caller-supplied vectors
//
// Semantic pairs a VectorIndex with an embed.Embedder so callers insert and
// query by text. Every entry is keyed by a monotonically increasing uint64
// identifier and carries the source id of the record it was built from
// ("seed_3", "gen_17").
//
// # Distances
//
// Distances follow the distance package: 0 means identical, larger is more
// dissimilar, and values are stable for the lifetime of an index.
package index
