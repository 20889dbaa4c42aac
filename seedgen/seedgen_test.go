package seedgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission/blobstore"
	"github.com/hupe1980/fission/codec"
	"github.com/hupe1980/fission/embed"
	"github.com/hupe1980/fission/index"
	"github.com/hupe1980/fission/index/flat"
	"github.com/hupe1980/fission/oracle"
	"github.com/hupe1980/fission/persistence"
	"github.com/hupe1980/fission/testutil"
)

var questionBank = []string{
	"What is the derivative of sine?",
	"Name the largest moon of Saturn.",
	"Who painted the ceiling of the Sistine Chapel?",
	"Convert 100 degrees Celsius to Fahrenheit.",
	"Which gas do plants absorb during photosynthesis?",
	"Summarize the plot of Hamlet briefly.",
}

func jsonResponse(v any) oracle.Response {
	return oracle.Response{Content: string(codec.MustMarshal(nil, v))}
}

// scripted answers by schema. Question requests cycle through the bank, so
// later rounds only repeat earlier questions.
func scripted(failAnswer string) *testutil.StubOracle {
	var (
		mu   sync.Mutex
		next int
	)

	return testutil.NewStubOracle(func(req oracle.Request, _ int) (oracle.Response, error) {
		switch req.Schema.Name {
		case subjectSchema.Name:
			return jsonResponse(SubjectList{Subjects: []Subject{
				{Subject: "Algebra", Level: 100, Subtopics: []string{"equations"}},
				{Subject: "Geometry", Level: 200, Subtopics: []string{"triangles"}},
			}}), nil
		case syllabusSchema.Name:
			return jsonResponse(Syllabus{Sessions: []Session{
				{Name: "Intro", KeyConcepts: []string{"basics"}},
				{Name: "Advanced", KeyConcepts: []string{"proofs"}},
			}}), nil
		case questionSchema.Name:
			mu.Lock()
			defer mu.Unlock()
			list := QuestionList{}
			for range 2 {
				list.Questions = append(list.Questions, Question{Question: questionBank[next%len(questionBank)]})
				next++
			}
			return jsonResponse(list), nil
		case answerSchema.Name:
			if strings.Contains(req.Messages[len(req.Messages)-1].Content, failAnswer) {
				return oracle.Response{}, errors.New("answer failed")
			}
			return jsonResponse(Answer{Answer: "answer"}), nil
		default:
			return oracle.Response{}, fmt.Errorf("unexpected schema %q", req.Schema.Name)
		}
	})
}

func newSemantic(t *testing.T) *index.Semantic {
	t.Helper()

	vectors, err := flat.New(func(o *flat.Options) { o.Dimension = 128 })
	require.NoError(t, err)

	sem, err := index.NewSemantic(embed.NewHashing(128), vectors)
	require.NoError(t, err)

	return sem
}

func TestGenerator_General(t *testing.T) {
	ctx := context.Background()

	stub := scripted(questionBank[1])

	src, err := NewGeneral("Mathematics")
	require.NoError(t, err)

	g, err := New(stub, src, newSemantic(t), func(o *Options) {
		o.Target = 4
		o.Batch = 2
	})
	require.NoError(t, err)

	records, err := g.Generate(ctx)
	require.NoError(t, err)

	// The second question's answer fails and is dropped; order is kept.
	require.Len(t, records, 3)
	assert.Equal(t, questionBank[0], records[0].Instruction)
	assert.Equal(t, questionBank[2], records[1].Instruction)
	assert.Equal(t, questionBank[3], records[2].Instruction)
	assert.Equal(t, "answer", records[0].Output)

	for _, req := range stub.Requests() {
		if req.Schema.Name == questionSchema.Name {
			assert.Contains(t, []float32{0.6, 0.8, 1.0, 1.2}, req.Sampling.Temperature)
			assert.Contains(t, []float32{0.6, 0.8, 1.0, 1.2}, req.Sampling.FrequencyPenalty)
		}
	}
}

func TestGenerator_DuplicatesAndMaxRounds(t *testing.T) {
	ctx := context.Background()

	src, err := NewKnowledge("Saturn has many moons.", 2)
	require.NoError(t, err)

	g, err := New(scripted("never"), src, newSemantic(t), func(o *Options) {
		o.Target = 100
		o.MaxRounds = 6
	})
	require.NoError(t, err)

	syllabi, err := src.Syllabi(ctx, g.client)
	require.NoError(t, err)

	questions, err := g.Questions(ctx, syllabi)
	assert.ErrorIs(t, err, ErrMaxRounds)
	assert.Len(t, questions, len(questionBank))
}

func TestGenerator_KnowledgeGrounding(t *testing.T) {
	ctx := context.Background()

	stub := scripted("never")

	src, err := NewKnowledge("Saturn has many moons.", 0)
	require.NoError(t, err)

	g, err := New(stub, src, newSemantic(t), func(o *Options) { o.Target = 2 })
	require.NoError(t, err)

	records, err := g.Generate(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	for _, req := range stub.Requests() {
		if req.Schema.Name == questionSchema.Name || req.Schema.Name == answerSchema.Name {
			assert.True(t, testutil.SystemContains(req, "Saturn has many moons."))
		}
	}
}

func TestWriteSeedsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	g, err := New(scripted("never"), mustKnowledge(t), newSemantic(t), func(o *Options) { o.Target = 3 })
	require.NoError(t, err)

	records, err := g.Generate(ctx)
	require.NoError(t, err)

	require.NoError(t, persistence.WriteSeeds(ctx, store, "seeds.jsonl", records))

	loaded, err := persistence.LoadSeeds(ctx, store, "seeds.jsonl")
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestNewErrors(t *testing.T) {
	_, err := NewGeneral(" ")
	assert.Error(t, err)

	_, err = NewKnowledge("", 1)
	assert.Error(t, err)

	_, err = New(scripted(""), mustKnowledge(t), nil)
	assert.Error(t, err)

	_, err = New(scripted(""), mustKnowledge(t), newSemantic(t), func(o *Options) { o.Target = 0 })
	assert.Error(t, err)
}

func mustKnowledge(t *testing.T) *Knowledge {
	t.Helper()

	k, err := NewKnowledge("Water boils at 100 degrees Celsius.", 2)
	require.NoError(t, err)
	return k
}
