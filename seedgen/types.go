package seedgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/fission/oracle"
)

// Subject is one subject of a discipline.
type Subject struct {
	Subject   string   `json:"subject"`
	Level     int      `json:"level"`
	Subtopics []string `json:"subtopics"`
}

// SubjectList is the response of a subject request.
type SubjectList struct {
	Subjects []Subject `json:"subjects"`
}

// Session is a single class session of a syllabus.
type Session struct {
	Name        string   `json:"session_name"`
	Description string   `json:"description"`
	KeyConcepts []string `json:"key_concepts"`
}

// Syllabus is the response of a syllabus request.
type Syllabus struct {
	Subject   string    `json:"subject"`
	Subtopics []string  `json:"subtopics"`
	Sessions  []Session `json:"syllabus"`
}

// Question is a generated question with optional input.
type Question struct {
	Question string `json:"question"`
	Input    string `json:"input"`
}

// QuestionList is the response of a question request.
type QuestionList struct {
	Questions []Question `json:"questions"`
}

// Answer is the response of an answer request.
type Answer struct {
	Answer string `json:"answer"`
}

var (
	subjectSchema  = oracle.Schema{Name: "subject_list", Prototype: SubjectList{}}
	syllabusSchema = oracle.Schema{Name: "syllabus", Prototype: Syllabus{}}
	questionSchema = oracle.Schema{Name: "question_list", Prototype: QuestionList{}}
	answerSchema   = oracle.Schema{Name: "answer", Prototype: Answer{}}
)

// Source produces the syllabi questions are drawn from.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Syllabi requests the syllabi from the oracle.
	Syllabi(ctx context.Context, client oracle.Client) ([]Syllabus, error)

	// Context returns extra grounding text for question and answer prompts.
	Context() string
}

// complete sends messages and decodes the response into v.
func complete(ctx context.Context, client oracle.Client, schema oracle.Schema, sampling oracle.Sampling, v any, msgs ...oracle.Message) error {
	resp, err := client.Complete(ctx, oracle.Request{
		Messages: msgs,
		Schema:   schema,
		Sampling: sampling,
	})
	if err != nil {
		return err
	}
	return oracle.Decode(resp, schema.Name, v)
}

func bullet(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func syllabusError(subject string, err error) error {
	return fmt.Errorf("syllabus for %q: %w", subject, err)
}
