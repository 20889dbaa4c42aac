// Package embed turns instruction text into vectors for semantic search.
package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrCountMismatch is returned when a backend answers with a different number
// of vectors than texts were sent.
var ErrCountMismatch = errors.New("embed: vector count mismatch")

// Embedder produces one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector size, 0 when unknown until the first call.
	Dimension() int

	ModelName() string
}

// Store is a persistent key/value cache of vectors.
type Store interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Put(ctx context.Context, key string, vec []float32) error
}

// Cached wraps an Embedder and reuses vectors from a Store. Only texts missing
// from the store are sent to the wrapped embedder, in a single call.
type Cached struct {
	inner Embedder
	store Store
}

// NewCached creates a caching embedder.
func NewCached(inner Embedder, store Store) *Cached {
	return &Cached{inner: inner, store: store}
}

func (c *Cached) Dimension() int    { return c.inner.Dimension() }
func (c *Cached) ModelName() string { return c.inner.ModelName() }

func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var (
		missing []string
		slots   []int
	)

	for i, text := range texts {
		vec, ok, err := c.store.Get(ctx, CacheKey(c.inner.ModelName(), text))
		if err != nil {
			return nil, fmt.Errorf("embed cache get: %w", err)
		}
		if ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		slots = append(slots, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, ErrCountMismatch
	}

	for j, vec := range vecs {
		out[slots[j]] = vec
		if err := c.store.Put(ctx, CacheKey(c.inner.ModelName(), missing[j]), vec); err != nil {
			return nil, fmt.Errorf("embed cache put: %w", err)
		}
	}

	return out, nil
}

// CacheKey derives the store key for text under model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return model + ":" + hex.EncodeToString(sum[:])
}
