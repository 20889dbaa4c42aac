package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
var ErrNotFound = os.ErrNotExist

// BlobStore stores whole named objects.
type BlobStore interface {
	// Get returns the full content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put atomically replaces the blob content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the sorted names with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Appender is implemented by stores that can extend a blob in place.
type Appender interface {
	// Append adds data to the end of the blob, creating it if needed.
	Append(ctx context.Context, name string, data []byte) error
}
