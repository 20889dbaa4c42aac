package fission

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/fission/model"
)

// Sample is the context of one oracle request: seed records followed by
// generated records.
type Sample struct {
	Seed      []model.TaskRecord
	Generated []model.TaskRecord
}

// Records returns the seed records followed by the generated records.
func (s Sample) Records() []model.TaskRecord {
	out := make([]model.TaskRecord, 0, len(s.Seed)+len(s.Generated))
	out = append(out, s.Seed...)
	return append(out, s.Generated...)
}

// Sampler draws stratified samples from a RecordPool.
// It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a Sampler with a seeded random source.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws seedCount records uniformly without replacement from the seed
// partition, then up to generatedCount records from the generated
// partition. A generated partition smaller than generatedCount is returned
// whole, in random order.
func (s *Sampler) Sample(pool *RecordPool, seedCount, generatedCount int) (Sample, error) {
	if seedCount < 0 || generatedCount < 0 {
		return Sample{}, fmt.Errorf("negative sample size (%d, %d)", seedCount, generatedCount)
	}

	var (
		out Sample
		err error
	)

	pool.view(func(seed, generated []model.TaskRecord) {
		if seedCount > len(seed) {
			err = &InsufficientPoolError{Requested: seedCount, Available: len(seed)}
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		out.Seed = s.choose(seed, seedCount)
		out.Generated = s.choose(generated, min(generatedCount, len(generated)))
	})

	return out, err
}

// choose returns k distinct elements of src via a partial Fisher-Yates
// shuffle over an index slice.
func (s *Sampler) choose(src []model.TaskRecord, k int) []model.TaskRecord {
	if k == 0 {
		return nil
	}

	idx := make([]int, len(src))
	for i := range idx {
		idx[i] = i
	}

	out := make([]model.TaskRecord, k)
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = src[idx[i]]
	}

	return out
}
