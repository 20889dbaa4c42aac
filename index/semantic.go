package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/fission/embed"
)

// Neighbor is the nearest stored entry for a query.
type Neighbor struct {
	ID       uint64
	SourceID string
	Distance float32
}

// Semantic is a text-level similarity index: instruction texts are embedded
// and stored in a VectorIndex under monotonically increasing ids.
type Semantic struct {
	mu       sync.Mutex
	embedder embed.Embedder
	vectors  VectorIndex
	nextID   uint64
	sources  map[uint64]string
}

// NewSemantic combines an embedder and a vector index. The index must be
// empty.
func NewSemantic(embedder embed.Embedder, vectors VectorIndex) (*Semantic, error) {
	if embedder == nil || vectors == nil {
		return nil, errors.New("index: embedder and vector index are required")
	}
	if vectors.Len() != 0 {
		return nil, errors.New("index: vector index must start empty")
	}

	return &Semantic{
		embedder: embedder,
		vectors:  vectors,
		sources:  make(map[uint64]string),
	}, nil
}

// Insert embeds text and stores it under the next id.
func (s *Semantic) Insert(ctx context.Context, text, sourceID string) (uint64, error) {
	ids, err := s.InsertBatch(ctx, []string{text}, []string{sourceID})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertBatch embeds all texts in one call and stores them in order.
func (s *Semantic) InsertBatch(ctx context.Context, texts, sourceIDs []string) ([]uint64, error) {
	if len(texts) != len(sourceIDs) {
		return nil, fmt.Errorf("index: %d texts but %d source ids", len(texts), len(sourceIDs))
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, embed.ErrCountMismatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uint64, len(texts))
	for i, vec := range vecs {
		id := s.nextID
		if err := s.vectors.Insert(ctx, id, vec); err != nil {
			return ids[:i], fmt.Errorf("insert %s: %w", sourceIDs[i], err)
		}
		s.sources[id] = sourceIDs[i]
		s.nextID++
		ids[i] = id
	}

	return ids, nil
}

// QueryNearest returns the closest stored entry to text. The boolean is false
// when nothing has been inserted yet.
func (s *Semantic) QueryNearest(ctx context.Context, text string) (Neighbor, bool, error) {
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return Neighbor{}, false, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != 1 {
		return Neighbor{}, false, embed.ErrCountMismatch
	}

	res, ok, err := s.vectors.Nearest(ctx, vecs[0])
	if err != nil || !ok {
		return Neighbor{}, ok, err
	}

	s.mu.Lock()
	src := s.sources[res.ID]
	s.mu.Unlock()

	return Neighbor{ID: res.ID, SourceID: src, Distance: res.Distance}, true, nil
}

// Len returns the number of stored entries.
func (s *Semantic) Len() int {
	return s.vectors.Len()
}

// Close closes the underlying vector index.
func (s *Semantic) Close() error {
	return s.vectors.Close()
}
