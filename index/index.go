package index

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when an id is inserted twice.
	ErrDuplicateID = errors.New("index: duplicate id")

	// ErrEmptyVector is returned for zero-length vectors.
	ErrEmptyVector = errors.New("index: empty vector")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index: closed")
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// SearchResult is a single nearest-neighbor hit.
type SearchResult struct {
	ID       uint64
	Distance float32
}

// VectorIndex is an append-only nearest-neighbor store.
type VectorIndex interface {
	// Insert adds vec under id. Ids must be unique.
	Insert(ctx context.Context, id uint64, vec []float32) error

	// Nearest returns the single closest entry to q.
	// The boolean is false when the index is empty.
	Nearest(ctx context.Context, q []float32) (SearchResult, bool, error)

	// Len returns the number of stored vectors.
	Len() int

	// Close releases the resources held by the index.
	Close() error
}

// CheckDimension validates v against the expected dimension. An expected
// dimension of 0 accepts any non-empty vector.
func CheckDimension(expected int, v []float32) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}
	if expected > 0 && len(v) != expected {
		return &ErrDimensionMismatch{Expected: expected, Actual: len(v)}
	}
	return nil
}
