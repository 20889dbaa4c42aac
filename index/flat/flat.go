// Package flat provides an exact, brute-force vector index.
package flat

import (
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/fission/distance"
	"github.com/hupe1980/fission/index"
)

// Compile-time check to ensure Flat satisfies the index interface.
var _ index.VectorIndex = (*Flat)(nil)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality. 0 infers it from the
	// first inserted vector.
	Dimension int

	// Metric selects the distance function.
	Metric distance.Metric

	// NormalizeVectors enables L2 normalization for stored vectors and queries.
	// Always on for MetricCosine and MetricDot.
	NormalizeVectors bool
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Dimension: 0,
	Metric:    distance.MetricL2,
}

// Flat stores every vector and scans all of them on query.
type Flat struct {
	mu        sync.RWMutex
	dimension int
	distFn    distance.Func
	opts      Options
	ids       []uint64
	vectors   [][]float32
	seen      map[uint64]struct{}
	closed    bool
}

// New creates a new instance of the flat index.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	distFn, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	if opts.Metric != distance.MetricL2 {
		opts.NormalizeVectors = true
	}

	return &Flat{
		dimension: opts.Dimension,
		distFn:    distFn,
		opts:      opts,
		seen:      make(map[uint64]struct{}),
	}, nil
}

// Insert adds vec under id.
func (f *Flat) Insert(_ context.Context, id uint64, vec []float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return index.ErrClosed
	}
	if err := index.CheckDimension(f.dimension, vec); err != nil {
		return err
	}
	if _, ok := f.seen[id]; ok {
		return index.ErrDuplicateID
	}

	v := f.prepare(vec)
	if f.dimension == 0 {
		f.dimension = len(v)
	}

	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, v)
	f.seen[id] = struct{}{}

	return nil
}

// Nearest scans all stored vectors. Ties resolve to the earliest insert.
func (f *Flat) Nearest(_ context.Context, q []float32) (index.SearchResult, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return index.SearchResult{}, false, index.ErrClosed
	}
	if len(f.vectors) == 0 {
		return index.SearchResult{}, false, nil
	}
	if err := index.CheckDimension(f.dimension, q); err != nil {
		return index.SearchResult{}, false, err
	}

	query := f.prepare(q)

	best := index.SearchResult{ID: f.ids[0], Distance: f.distFn(query, f.vectors[0])}
	for i := 1; i < len(f.vectors); i++ {
		if d := f.distFn(query, f.vectors[i]); d < best.Distance {
			best = index.SearchResult{ID: f.ids[i], Distance: d}
		}
	}

	return best, true, nil
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Close drops all vectors.
func (f *Flat) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.ids, f.vectors, f.seen = nil, nil, nil
	return nil
}

func (f *Flat) prepare(v []float32) []float32 {
	if f.opts.NormalizeVectors {
		if n, ok := distance.NormalizeL2Copy(v); ok {
			return n
		}
	}
	return slices.Clone(v)
}
