package fission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission/model"
	"github.com/hupe1980/fission/oracle"
)

func TestSplitBatch(t *testing.T) {
	tests := []struct {
		batch, broad, deep int
	}{
		{1, 1, 0},
		{2, 1, 1},
		{5, 3, 2},
		{10, 5, 5},
	}

	for _, tt := range tests {
		b, d := splitBatch(tt.batch)
		assert.Equal(t, tt.broad, b)
		assert.Equal(t, tt.deep, d)
		assert.Equal(t, tt.batch, b+d)
	}
}

func TestRenderExamples(t *testing.T) {
	got := RenderExamples([]model.TaskRecord{
		{Instruction: "Translate to German:", Input: "Good morning", Output: "Guten Morgen"},
		{Instruction: "Name a prime number.", Output: "Seven"},
	})

	want := "1. Instruction: Translate to German\n" +
		"1. Input: Good morning\n" +
		"1. Output: Guten Morgen\n" +
		"2. Instruction: Name a prime number.\n" +
		"2. Input: <noinput>\n" +
		"2. Output: Seven\n"

	assert.Equal(t, want, got)
}

func TestStrategies(t *testing.T) {
	examples := []model.TaskRecord{{Instruction: "Name a prime number.", Output: "Seven"}}

	knowledge, err := NewKnowledge("Rust has ownership and borrowing.")
	require.NoError(t, err)

	tests := []struct {
		strategy Strategy
		name     string
		contains string
	}{
		{NewGeneral(), "general", ""},
		{knowledge, "knowledge", "Rust has ownership and borrowing."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.strategy.Name())
			assert.Equal(t, oracle.TaskSchema, tt.strategy.Schema())

			broad := tt.strategy.Messages(Broadening, examples, 3)
			deep := tt.strategy.Messages(Deepening, examples, 2)

			require.Len(t, broad, 2)
			assert.Equal(t, oracle.RoleSystem, broad[0].Role)
			assert.Equal(t, oracle.RoleUser, broad[1].Role)

			assert.Contains(t, broad[0].Content, "Create exactly 3 new tasks")
			assert.Contains(t, deep[0].Content, "Create exactly 2 harder tasks")
			assert.Contains(t, broad[0].Content, "1. Instruction: Name a prime number.")
			assert.Contains(t, broad[1].Content, "exactly 3 tasks")
			assert.Contains(t, deep[0].Content, tt.contains)
		})
	}

	_, err = NewKnowledge("  ")
	assert.Error(t, err)
}

func TestRequestKind_String(t *testing.T) {
	assert.Equal(t, "broadening", Broadening.String())
	assert.Equal(t, "deepening", Deepening.String())
}
