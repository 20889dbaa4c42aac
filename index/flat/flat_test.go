package flat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission/distance"
	"github.com/hupe1980/fission/index"
)

func TestFlat(t *testing.T) {
	ctx := context.Background()

	f, err := New(func(o *Options) {
		o.Dimension = 2
	})
	require.NoError(t, err)

	_, ok, err := f.Nearest(ctx, []float32{0, 0})
	require.NoError(t, err)
	assert.False(t, ok, "empty index has no neighbor")

	require.NoError(t, f.Insert(ctx, 1, []float32{0, 0}))
	require.NoError(t, f.Insert(ctx, 2, []float32{3, 4}))
	assert.Equal(t, 2, f.Len())

	res, ok, err := f.Nearest(ctx, []float32{3, 3})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(2), res.ID)
	assert.InDelta(t, 1, res.Distance, 1e-6)

	t.Run("DuplicateID", func(t *testing.T) {
		assert.ErrorIs(t, f.Insert(ctx, 1, []float32{1, 1}), index.ErrDuplicateID)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		err := f.Insert(ctx, 3, []float32{1, 2, 3})
		var dimErr *index.ErrDimensionMismatch
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 2, dimErr.Expected)
		assert.Equal(t, 3, dimErr.Actual)
	})

	t.Run("Closed", func(t *testing.T) {
		require.NoError(t, f.Close())
		assert.ErrorIs(t, f.Insert(ctx, 9, []float32{1, 1}), index.ErrClosed)
	})
}

func TestFlat_Cosine(t *testing.T) {
	ctx := context.Background()

	f, err := New(func(o *Options) {
		o.Metric = distance.MetricCosine
	})
	require.NoError(t, err)

	require.NoError(t, f.Insert(ctx, 10, []float32{1, 0}))
	require.NoError(t, f.Insert(ctx, 11, []float32{0, 1}))

	res, ok, err := f.Nearest(ctx, []float32{5, 0.1})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(10), res.ID)
	assert.Less(t, res.Distance, float32(0.01))
}

func TestFlat_InferDimension(t *testing.T) {
	ctx := context.Background()

	f, err := New()
	require.NoError(t, err)
	require.NoError(t, f.Insert(ctx, 0, []float32{1, 2, 3}))

	_, _, err = f.Nearest(ctx, []float32{1, 2})
	assert.Error(t, err)
}
