package fission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission/model"
	"github.com/hupe1980/fission/testutil"
)

func TestSampler_Sample(t *testing.T) {
	pool := NewRecordPool(testutil.SeedTasks())
	pool.Append(testutil.NovelTask(0), testutil.NovelTask(1))

	tests := []struct {
		name          string
		seedCount     int
		genCount      int
		wantSeed      int
		wantGenerated int
	}{
		{"Both", 2, 1, 2, 1},
		{"AllSeeds", 3, 0, 3, 0},
		{"GeneratedSmallerThanRequested", 1, 5, 1, 2},
		{"Nothing", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSampler(1).Sample(pool, tt.seedCount, tt.genCount)
			require.NoError(t, err)

			assert.Len(t, s.Seed, tt.wantSeed)
			assert.Len(t, s.Generated, tt.wantGenerated)
			assert.Len(t, s.Records(), tt.wantSeed+tt.wantGenerated)

			assertDistinct(t, s.Seed)
			assertDistinct(t, s.Generated)
			assert.Subset(t, pool.Seed(), s.Seed)
			assert.Subset(t, pool.Generated(), s.Generated)
		})
	}
}

func TestSampler_Errors(t *testing.T) {
	pool := NewRecordPool(testutil.SeedTasks())

	_, err := NewSampler(1).Sample(pool, 4, 0)

	var ipe *InsufficientPoolError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, 4, ipe.Requested)
	assert.Equal(t, 3, ipe.Available)

	_, err = NewSampler(1).Sample(pool, -1, 0)
	assert.Error(t, err)

	s, err := NewSampler(1).Sample(NewRecordPool(nil), 0, 3)
	require.NoError(t, err)
	assert.Empty(t, s.Records())
}

func TestSampler_Deterministic(t *testing.T) {
	pool := NewRecordPool(testutil.SeedTasks())
	for i := range 10 {
		pool.Append(testutil.NovelTask(i))
	}

	a, b := NewSampler(7), NewSampler(7)
	for range 5 {
		sa, err := a.Sample(pool, 2, 3)
		require.NoError(t, err)
		sb, err := b.Sample(pool, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, sa, sb)
	}
}

func TestSampler_Uniform(t *testing.T) {
	pool := NewRecordPool(testutil.SeedTasks())
	s := NewSampler(3)

	counts := map[string]int{}
	for range 3000 {
		sample, err := s.Sample(pool, 1, 0)
		require.NoError(t, err)
		counts[sample.Seed[0].Instruction]++
	}

	for _, r := range pool.Seed() {
		assert.InDelta(t, 1000, counts[r.Instruction], 150)
	}
}

func TestRecordPool(t *testing.T) {
	seeds := testutil.SeedTasks()
	pool := NewRecordPool(seeds)

	seeds[0].Instruction = "mutated"
	assert.NotEqual(t, "mutated", pool.Seed()[0].Instruction)

	pool.Append(testutil.NovelTask(0))
	gen := pool.Generated()
	gen[0].Instruction = "mutated"

	assert.Equal(t, testutil.NovelTask(0), pool.Generated()[0])
	assert.Equal(t, 3, pool.SeedLen())
	assert.Equal(t, 1, pool.GeneratedLen())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "SAMPLING", PhaseSampling.String())
	assert.Equal(t, "DONE", PhaseDone.String())
	assert.Equal(t, "UNKNOWN", Phase(99).String())
}

func assertDistinct(t *testing.T, records []model.TaskRecord) {
	t.Helper()

	seen := map[string]bool{}
	for _, r := range records {
		assert.False(t, seen[r.Instruction], "duplicate %q", r.Instruction)
		seen[r.Instruction] = true
	}
}
