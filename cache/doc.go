// Package cache stores embedding vectors across runs.
//
// Two implementations of embed.Store are provided:
//
//   - Badger: an embedded BadgerDB key/value store, persistent on disk or in
//     memory for tests
//   - Memory: a process-local map
//
// Re-embedding the seed pool and previously admitted records on every resume
// costs a round-trip per text against a remote model; a persistent cache
// makes resumes start immediately.
package cache
