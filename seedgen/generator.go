package seedgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fission/index"
	"github.com/hupe1980/fission/model"
	"github.com/hupe1980/fission/oracle"
)

// ErrMaxRounds is returned when the round limit is reached before the
// target.
var ErrMaxRounds = errors.New("seedgen: round limit reached")

// Options configures a Generator.
type Options struct {
	// Target is the number of distinct questions to collect.
	Target int

	// Batch is the number of questions requested per session.
	Batch int

	// Threshold is the semantic distance a question must exceed to be kept.
	Threshold float64

	// Choices are the temperature and frequency penalty values drawn per
	// question request.
	Choices []float32

	// MaxQuestionWords and MaxAnswerWords are stated in the prompts.
	MaxQuestionWords int
	MaxAnswerWords   int

	// AnswerWorkers bounds the concurrent answer requests.
	AnswerWorkers int

	// MaxRounds bounds the number of syllabus passes. Zero means unbounded.
	MaxRounds int

	// Seed seeds syllabus and sampling choices.
	Seed int64

	Logger *slog.Logger
}

// DefaultOptions contains the default generator configuration.
var DefaultOptions = Options{
	Target:           100,
	Batch:            5,
	Threshold:        0.7,
	Choices:          []float32{0.6, 0.8, 1.0, 1.2},
	MaxQuestionWords: 100,
	MaxAnswerWords:   150,
	AnswerWorkers:    8,
	Seed:             1,
}

// Generator bootstraps a seed set: it collects distinct questions from the
// sessions of the source's syllabi, then answers them.
type Generator struct {
	client   oracle.Client
	source   Source
	semantic *index.Semantic
	opts     Options
	rng      *rand.Rand
	logger   *slog.Logger
}

// New creates a Generator. semantic must be empty; it deduplicates the
// questions.
func New(client oracle.Client, source Source, semantic *index.Semantic, optFns ...func(o *Options)) (*Generator, error) {
	if client == nil || source == nil || semantic == nil {
		return nil, errors.New("seedgen: client, source and semantic index are required")
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Target < 1 {
		return nil, fmt.Errorf("seedgen: target must be positive, got %d", opts.Target)
	}
	if opts.Batch < 1 {
		opts.Batch = 1
	}
	if opts.AnswerWorkers < 1 {
		opts.AnswerWorkers = 1
	}
	if len(opts.Choices) == 0 {
		opts.Choices = DefaultOptions.Choices
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Generator{
		client:   client,
		source:   source,
		semantic: semantic,
		opts:     opts,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		logger:   logger,
	}, nil
}

// Generate runs the pipeline and returns the answered records in question
// order. Questions whose answer request fails are dropped.
func (g *Generator) Generate(ctx context.Context) ([]model.TaskRecord, error) {
	syllabi, err := g.source.Syllabi(ctx, g.client)
	if err != nil {
		return nil, err
	}

	questions, err := g.Questions(ctx, syllabi)
	if err != nil {
		return nil, err
	}

	return g.Answers(ctx, questions)
}

// Questions collects Target distinct questions.
func (g *Generator) Questions(ctx context.Context, syllabi []Syllabus) ([]Question, error) {
	usable := make([]Syllabus, 0, len(syllabi))
	for _, s := range syllabi {
		if len(s.Sessions) > 0 {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return nil, errors.New("seedgen: no syllabus with sessions")
	}

	var kept []Question

	for round := 0; len(kept) < g.opts.Target; round++ {
		if g.opts.MaxRounds > 0 && round >= g.opts.MaxRounds {
			return kept, ErrMaxRounds
		}

		syl := usable[g.rng.Intn(len(usable))]

		for _, session := range syl.Sessions {
			if len(kept) >= g.opts.Target {
				break
			}

			batch, err := g.requestQuestions(ctx, syl, session)
			if err != nil {
				return kept, err
			}

			for _, q := range batch {
				q.Question = strings.TrimSpace(q.Question)
				q.Input = strings.TrimSpace(q.Input)
				if q.Question == "" {
					continue
				}

				ok, err := g.novel(ctx, q, len(kept))
				if err != nil {
					return kept, err
				}
				if ok {
					kept = append(kept, q)
				}
				if len(kept) >= g.opts.Target {
					break
				}
			}
		}

		g.logger.InfoContext(ctx, "question round completed",
			"source", g.source.Name(),
			"subject", syl.Subject,
			"round", round,
			"kept", len(kept),
		)
	}

	return kept, nil
}

func (g *Generator) requestQuestions(ctx context.Context, syl Syllabus, session Session) ([]Question, error) {
	sampling := oracle.DefaultSampling()
	sampling.Temperature = g.opts.Choices[g.rng.Intn(len(g.opts.Choices))]
	sampling.FrequencyPenalty = g.opts.Choices[g.rng.Intn(len(g.opts.Choices))]

	prompt := fmt.Sprintf(`Write exactly %d homework questions for the class session %q of the subject %q.
Key concepts: %s.
Subtopics: %s.
Rules:
1. When a question needs an example, put realistic, substantial content in the input field. No placeholders.
2. When a question needs no example, leave the input field empty.
3. Mix questions that ask to remember, understand, apply, analyze and evaluate.
4. Mix easy, medium and hard questions.
5. Keep each question under %d words.`,
		g.opts.Batch, session.Name, syl.Subject, bullet(session.KeyConcepts), bullet(syl.Subtopics), g.opts.MaxQuestionWords)

	msgs := []oracle.Message{}
	if c := g.source.Context(); c != "" {
		msgs = append(msgs, oracle.System("Ground every question in this knowledge:\n"+c))
	}
	msgs = append(msgs, oracle.User(prompt))

	var list QuestionList
	if err := complete(ctx, g.client, questionSchema, sampling, &list, msgs...); err != nil {
		return nil, fmt.Errorf("questions for %q: %w", session.Name, err)
	}

	return list.Questions, nil
}

// novel checks q against the index and inserts it when kept.
func (g *Generator) novel(ctx context.Context, q Question, n int) (bool, error) {
	nb, ok, err := g.semantic.QueryNearest(ctx, q.Question)
	if err != nil {
		return false, err
	}
	if ok && float64(nb.Distance) <= g.opts.Threshold {
		g.logger.DebugContext(ctx, "question dropped as duplicate",
			"question", q.Question,
			"nearest", nb.SourceID,
			"distance", nb.Distance,
		)
		return false, nil
	}

	if _, err := g.semantic.Insert(ctx, q.Question, fmt.Sprintf("q_%d", n)); err != nil {
		return false, err
	}

	return true, nil
}

// Answers answers questions concurrently. The result keeps question order;
// failed or empty answers are logged and dropped.
func (g *Generator) Answers(ctx context.Context, questions []Question) ([]model.TaskRecord, error) {
	answers := make([]string, len(questions))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.AnswerWorkers)

	for i, q := range questions {
		eg.Go(func() error {
			a, err := g.answer(egCtx, q)
			if err != nil {
				if ctxErr := egCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				g.logger.WarnContext(egCtx, "answer failed",
					"index", i,
					"question", q.Question,
					"error", err,
				)
				return nil
			}
			answers[i] = a
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	records := make([]model.TaskRecord, 0, len(questions))
	for i, q := range questions {
		r := model.TaskRecord{Instruction: q.Question, Input: q.Input, Output: answers[i]}.Normalize()
		if answers[i] == "" || !r.Valid() {
			continue
		}
		records = append(records, r)
	}

	return records, nil
}

func (g *Generator) answer(ctx context.Context, q Question) (string, error) {
	input := q.Input
	if input == "" {
		input = model.NoInput
	}

	prompt := fmt.Sprintf(`Answer the question briefly.
Question: %s
Input: %s
Rules:
1. Reply "DO NOT KNOW" when unsure.
2. Keep the answer under %d words.`, q.Question, input, g.opts.MaxAnswerWords)

	msgs := []oracle.Message{}
	if c := g.source.Context(); c != "" {
		msgs = append(msgs, oracle.System("Answer from this knowledge:\n"+c))
	}
	msgs = append(msgs, oracle.User(prompt))

	var a Answer
	if err := complete(ctx, g.client, answerSchema, oracle.DefaultSampling(), &a, msgs...); err != nil {
		return "", err
	}

	return strings.TrimSpace(a.Answer), nil
}
