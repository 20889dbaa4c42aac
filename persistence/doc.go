// Package persistence reads seed files and writes resumable checkpoints of
// the generated pool.
//
// # Checkpoint formats
//
//   - FormatJSON: one JSON array, rewritten on every save
//   - FormatJSONL: one record per line; after the first save only the records
//     admitted since the previous save are appended (when the store
//     implements blobstore.Appender and no compression is configured)
//
// Compressed checkpoints (zstd frames or lz4 frames) are always rewritten.
// Both compression formats are the standard framed ones, so `zstd -d` and
// `lz4 -d` can open them.
//
// # Seed files
//
// Seed files are JSONL. Each line is either flat
//
//	{"instruction": "...", "input": "...", "output": "..."}
//
// or nested, in which case the first instance is used:
//
//	{"instruction": "...", "instances": [{"input": "...", "output": "..."}]}
package persistence
