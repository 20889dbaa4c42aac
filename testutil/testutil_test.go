package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission/distance"
	"github.com/hupe1980/fission/oracle"
)

func TestUniformVectors(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.UniformVectors(8, 32)

	assert.Equal(t, 8, len(v))
	assert.Equal(t, 32, len(v[0]))
	assert.LessOrEqual(t, v[0][0], float32(1.0))
	assert.GreaterOrEqual(t, v[1][0], float32(0.0))
}

func TestUnitVectors(t *testing.T) {
	rng := NewRNG(4711)

	for _, vec := range rng.UnitVectors(8, 32) {
		assert.InDelta(t, 1.0, distance.Dot(vec, vec), 1e-5)
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(3)
	a := rng.Intn(1000)
	rng.Reset()
	assert.Equal(t, a, rng.Intn(1000))
	assert.Equal(t, int64(3), rng.Seed())
}

func TestExactNearestAndRecall(t *testing.T) {
	vectors := [][]float32{{0, 0}, {5, 5}, {1, 1}}

	got := ExactNearest([]float32{0.9, 0.9}, vectors, distance.SquaredL2)
	assert.Equal(t, uint64(2), got.ID)

	truth := []SearchResult{{ID: 1}, {ID: 2}}
	assert.Equal(t, 0.5, ComputeRecall(truth, []SearchResult{{ID: 1}, {ID: 3}}))
	assert.Equal(t, 0.0, ComputeRecall(nil, nil))
}

func TestStubOracle(t *testing.T) {
	ctx := context.Background()

	stub := NewStubOracle(func(req oracle.Request, call int) (oracle.Response, error) {
		if call == 1 {
			return oracle.Response{}, errors.New("boom")
		}
		return TasksResponse(NovelTask(call)), nil
	})

	resp, err := stub.Complete(ctx, oracle.Request{Messages: []oracle.Message{oracle.System("hello world")}})
	require.NoError(t, err)

	tasks, bad, err := oracle.DecodeTasks(resp)
	require.NoError(t, err)
	assert.Empty(t, bad)
	assert.Equal(t, NovelTask(0), tasks[0])

	_, err = stub.Complete(ctx, oracle.Request{})
	assert.EqualError(t, err, "boom")

	assert.Equal(t, 2, stub.Calls())
	assert.True(t, SystemContains(stub.Requests()[0], "world"))
	assert.False(t, SystemContains(stub.Requests()[1], "world"))

	require.NoError(t, stub.Close())
	assert.True(t, stub.Closed())

	_, err = stub.Complete(ctx, oracle.Request{})
	assert.ErrorIs(t, err, oracle.ErrClosed)
}

func TestNovelTasksAreDistinct(t *testing.T) {
	seen := map[string]bool{}
	for i := range 20 {
		seen[NovelTask(i).Instruction] = true
	}
	assert.Len(t, seen, 20)
	assert.Len(t, SeedTasks(), 3)
}
