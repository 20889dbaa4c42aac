package lexical

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected []string
	}{
		{"Simple", "Give three tips", []string{"give", "three", "tips"}},
		{"Punctuation", "Hello, world! It's 2024.", []string{"hello", "world", "it", "s", "2024"}},
		{"NonASCII", "café au lait", []string{"caf", "au", "lait"}},
		{"Empty", "", nil},
		{"OnlySymbols", "?!...", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.in))
		})
	}
}

func TestLCS(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []string
		expected int
	}{
		{"Identical", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 3},
		{"Subsequence", []string{"a", "b", "c", "d"}, []string{"a", "c", "d"}, 3},
		{"Disjoint", []string{"a"}, []string{"b"}, 0},
		{"Empty", nil, []string{"a"}, 0},
		{"Reordered", []string{"a", "b", "c"}, []string{"c", "b", "a"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LCS(tt.a, tt.b))
			assert.Equal(t, tt.expected, LCS(tt.b, tt.a))
		})
	}
}

func TestRougeL(t *testing.T) {
	assert.InDelta(t, 1.0, RougeL("Give three tips.", "give THREE tips"), 1e-9)
	assert.InDelta(t, 0.0, RougeL("", "anything"), 1e-9)
	assert.InDelta(t, 0.0, RougeL("alpha", "beta"), 1e-9)

	// lcs=3, lens 4 and 3: 2*3/7
	assert.InDelta(t, 6.0/7.0, RougeL("give three good tips", "give three tips"), 1e-9)
}

func TestScorer_MaxOverlap(t *testing.T) {
	ctx := context.Background()

	for _, prefilter := range []bool{true, false} {
		t.Run(fmt.Sprintf("Prefilter=%v", prefilter), func(t *testing.T) {
			s := New(func(o *Options) {
				o.Prefilter = prefilter
				o.MinChunk = 1
			})

			m, err := s.MaxOverlap(ctx, "anything")
			require.NoError(t, err)
			assert.Equal(t, -1, m.Index)

			s.Add("Write a poem about the sea.")
			s.Add("Give three tips for staying healthy.")
			s.Add("Translate the sentence into French.")
			assert.Equal(t, 3, s.Len())

			m, err = s.MaxOverlap(ctx, "Give three tips for staying fit.")
			require.NoError(t, err)
			assert.Equal(t, 1, m.Index)
			assert.InDelta(t, 2.0*5.0/12.0, m.Score, 1e-9)

			m, err = s.MaxOverlap(ctx, "zzz qqq")
			require.NoError(t, err)
			assert.Equal(t, 0.0, m.Score)
		})
	}
}

func TestScorer_TopK(t *testing.T) {
	s := New()
	s.Add("a b c d")
	s.Add("a b x y")
	s.Add("q r s t")

	top, err := s.TopK(context.Background(), "a b c d", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 0, top[0].Index)
	assert.Equal(t, 1, top[1].Index)
}

func TestScorer_Canceled(t *testing.T) {
	s := New(func(o *Options) { o.MinChunk = 1 })
	for i := 0; i < 16; i++ {
		s.Add(fmt.Sprintf("reference number %d", i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.MaxOverlap(ctx, "reference number")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScorer_MatchesSerial(t *testing.T) {
	ctx := context.Background()
	s := New(func(o *Options) { o.MinChunk = 1; o.Workers = 3 })

	refs := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		refs = append(refs, fmt.Sprintf("describe item %d of the list in %d words", i, i%7))
	}
	for _, r := range refs {
		s.Add(r)
	}

	cand := "describe item 13 of the list in 6 words"
	m, err := s.MaxOverlap(ctx, cand)
	require.NoError(t, err)

	best := 0.0
	for _, r := range refs {
		best = max(best, RougeL(cand, r))
	}
	assert.InDelta(t, best, m.Score, 1e-12)
	assert.Equal(t, 13, m.Index)
}
