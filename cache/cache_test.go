package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission/embed"
)

func TestStores(t *testing.T) {
	ctx := context.Background()

	inMem, err := OpenBadger(func(o *BadgerOptions) { o.InMemory = true })
	require.NoError(t, err)
	t.Cleanup(func() { _ = inMem.Close() })

	stores := []struct {
		name  string
		store embed.Store
	}{
		{"Badger", inMem},
		{"Memory", NewMemory()},
	}

	for _, tt := range stores {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := tt.store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			vec := []float32{0.25, -1.5, 3}
			require.NoError(t, tt.store.Put(ctx, "k", vec))

			got, ok, err := tt.store.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, vec, got)
		})
	}
}

func TestBadger_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBadger(func(o *BadgerOptions) { o.Path = dir })
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, "k", []float32{1, 2}))
	require.NoError(t, b.Close())

	b, err = OpenBadger(func(o *BadgerOptions) { o.Path = dir })
	require.NoError(t, err)
	defer b.Close()

	got, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, got)
}

func TestBadger_PathRequired(t *testing.T) {
	_, err := OpenBadger()
	assert.Error(t, err)
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	c := embed.NewCached(embed.NewHashing(8), store)

	_, err := c.Embed(ctx, []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}

func TestVectorCodec(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)

	vec, err := decodeVector(encodeVector([]float32{-0.5}))
	require.NoError(t, err)
	assert.Equal(t, []float32{-0.5}, vec)
}
