package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/fission/distance"
)

// SearchResult represents a nearest-neighbor result.
type SearchResult struct {
	ID       uint64
	Distance float32
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float32, num)

	for i := range num {
		vec := make([]float32, dimensions)
		for j := range vec {
			vec[j] = float32(r.rand.NormFloat64())
		}
		distance.NormalizeL2InPlace(vec)
		vectors[i] = vec
	}

	return vectors
}

// ExactNearest returns the nearest vector to q by linear scan.
func ExactNearest(q []float32, vectors [][]float32, fn distance.Func) SearchResult {
	best := SearchResult{Distance: -1}
	for i, v := range vectors {
		d := fn(q, v)
		if best.Distance < 0 || d < best.Distance {
			best = SearchResult{ID: uint64(i), Distance: d}
		}
	}
	return best
}

// ComputeRecall returns the fraction of queries whose approximate nearest
// neighbor matches the exact one.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 {
		return 0
	}

	hits := 0
	for i := range min(len(groundTruth), len(approximate)) {
		if groundTruth[i].ID == approximate[i].ID {
			hits++
		}
	}

	return float64(hits) / float64(len(groundTruth))
}
