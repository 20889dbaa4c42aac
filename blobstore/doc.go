// Package blobstore provides the storage abstraction behind checkpoints and
// seed files.
//
// BlobStore reads and writes whole named objects. Implementations must be
// safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic replace via rename, append support
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 (uploads through the S3 transfer manager)
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Get(ctx, name) ([]byte, error)
//	    Put(ctx, name, data) error // atomic replace
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Stores that can extend an object in place also implement Appender; JSONL
// checkpoints use it to write only the records admitted since the last save.
package blobstore
