package seedgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fission/oracle"
)

// GeneralOptions configures a General source.
type GeneralOptions struct {
	MaxSubjects  int
	MaxSubtopics int
	MaxSessions  int

	// Workers bounds the concurrent syllabus requests.
	Workers int
}

// DefaultGeneralOptions contains the default General configuration.
var DefaultGeneralOptions = GeneralOptions{
	MaxSubjects:  5,
	MaxSubtopics: 5,
	MaxSessions:  5,
	Workers:      4,
}

// General derives syllabi from a discipline: subjects first, then one
// syllabus per subject.
type General struct {
	discipline string
	opts       GeneralOptions
}

// NewGeneral creates a General source for discipline.
func NewGeneral(discipline string, optFns ...func(o *GeneralOptions)) (*General, error) {
	discipline = strings.TrimSpace(discipline)
	if discipline == "" {
		return nil, errors.New("discipline is empty")
	}

	opts := DefaultGeneralOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	return &General{discipline: discipline, opts: opts}, nil
}

func (g *General) Name() string { return "general" }

func (g *General) Context() string { return "" }

func (g *General) Syllabi(ctx context.Context, client oracle.Client) ([]Syllabus, error) {
	var subjects SubjectList

	prompt := fmt.Sprintf(`You are a professor of %s. List the subjects a student of this discipline should learn.
Give each subject a level between 100 and 900 and its key subtopics.
Rules:
1. Return at most %d subjects.
2. Together the subjects cover most of the discipline.
3. Return at most %d subtopics per subject.`, g.discipline, g.opts.MaxSubjects, g.opts.MaxSubtopics)

	if err := complete(ctx, client, subjectSchema, oracle.DefaultSampling(), &subjects, oracle.User(prompt)); err != nil {
		return nil, fmt.Errorf("subjects for %q: %w", g.discipline, err)
	}
	if len(subjects.Subjects) == 0 {
		return nil, fmt.Errorf("subjects for %q: %w", g.discipline, oracle.ErrEmptyResponse)
	}

	syllabi := make([]Syllabus, len(subjects.Subjects))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)

	for i, s := range subjects.Subjects {
		eg.Go(func() error {
			prompt := fmt.Sprintf(`You write course syllabi. Create a syllabus for the subject %q at level %d.
Rules:
1. Split the syllabus into class sessions, each covering different key concepts.
2. The subtopics of the subject are: %s.
3. Return at most %d sessions.`, s.Subject, s.Level, bullet(s.Subtopics), g.opts.MaxSessions)

			var syl Syllabus
			if err := complete(ctx, client, syllabusSchema, oracle.DefaultSampling(), &syl, oracle.User(prompt)); err != nil {
				return syllabusError(s.Subject, err)
			}
			if syl.Subject == "" {
				syl.Subject = s.Subject
			}
			if len(syl.Subtopics) == 0 {
				syl.Subtopics = s.Subtopics
			}
			syllabi[i] = syl
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return syllabi, nil
}

// Knowledge derives a single syllabus from a knowledge text.
type Knowledge struct {
	text        string
	maxSessions int
}

// NewKnowledge creates a Knowledge source over text.
func NewKnowledge(text string, maxSessions int) (*Knowledge, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("knowledge text is empty")
	}
	if maxSessions < 1 {
		maxSessions = 3
	}
	return &Knowledge{text: text, maxSessions: maxSessions}, nil
}

func (k *Knowledge) Name() string { return "knowledge" }

func (k *Knowledge) Context() string { return k.text }

func (k *Knowledge) Syllabi(ctx context.Context, client oracle.Client) ([]Syllabus, error) {
	prompt := fmt.Sprintf(`You write course syllabi. Create a syllabus that teaches the knowledge below.
Name the subject and its subtopics, then split it into at most %d class sessions with key concepts.

Knowledge:
%s`, k.maxSessions, k.text)

	var syl Syllabus
	if err := complete(ctx, client, syllabusSchema, oracle.DefaultSampling(), &syl, oracle.User(prompt)); err != nil {
		return nil, syllabusError("knowledge", err)
	}

	return []Syllabus{syl}, nil
}
