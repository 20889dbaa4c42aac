package hnsw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission/distance"
	"github.com/hupe1980/fission/index"
	"github.com/hupe1980/fission/index/flat"
	"github.com/hupe1980/fission/testutil"
)

func TestHNSW_Empty(t *testing.T) {
	h, err := New()
	require.NoError(t, err)

	_, ok, err := h.Nearest(context.Background(), []float32{1, 2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHNSW_Single(t *testing.T) {
	ctx := context.Background()

	h, err := New()
	require.NoError(t, err)
	require.NoError(t, h.Insert(ctx, 42, []float32{1, 2}))

	res, ok, err := h.Nearest(ctx, []float32{1, 3})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(42), res.ID)
	assert.InDelta(t, 1, res.Distance, 1e-6)

	assert.ErrorIs(t, h.Insert(ctx, 42, []float32{0, 0}), index.ErrDuplicateID)
}

func TestHNSW_Recall(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(7)

	const (
		n   = 300
		dim = 8
	)

	vectors := rng.UniformVectors(n, dim)

	tests := []struct {
		name      string
		heuristic bool
		metric    distance.Metric
	}{
		{"Heuristic", true, distance.MetricL2},
		{"Simple", false, distance.MetricL2},
		{"Cosine", true, distance.MetricCosine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := New(func(o *Options) {
				o.Dimension = dim
				o.Heuristic = tt.heuristic
				o.Metric = tt.metric
				o.M = 8
			})
			require.NoError(t, err)

			exact, err := flat.New(func(o *flat.Options) {
				o.Dimension = dim
				o.Metric = tt.metric
			})
			require.NoError(t, err)

			for i, v := range vectors {
				require.NoError(t, h.Insert(ctx, uint64(i), v))
				require.NoError(t, exact.Insert(ctx, uint64(i), v))
			}
			assert.Equal(t, n, h.Len())

			queries := rng.UniformVectors(50, dim)

			var exactResults, approxResults []testutil.SearchResult
			for _, q := range queries {
				got, ok, err := h.Nearest(ctx, q)
				require.NoError(t, err)
				require.True(t, ok)

				want, _, err := exact.Nearest(ctx, q)
				require.NoError(t, err)

				approxResults = append(approxResults, testutil.SearchResult{ID: got.ID, Distance: got.Distance})
				exactResults = append(exactResults, testutil.SearchResult{ID: want.ID, Distance: want.Distance})
			}

			assert.GreaterOrEqual(t, testutil.ComputeRecall(exactResults, approxResults), 0.9, "recall@1 too low")
		})
	}
}
