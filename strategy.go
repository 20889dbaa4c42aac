package fission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/fission/model"
	"github.com/hupe1980/fission/oracle"
)

// RequestKind selects the kind of variation requested from the oracle.
type RequestKind uint8

const (
	// Broadening asks for novel tasks of comparable difficulty.
	Broadening RequestKind = iota
	// Deepening asks for harder, more complex tasks.
	Deepening
)

func (k RequestKind) String() string {
	switch k {
	case Broadening:
		return "broadening"
	case Deepening:
		return "deepening"
	default:
		return fmt.Sprintf("RequestKind(%d)", k)
	}
}

// Strategy builds the oracle messages for a request kind.
type Strategy interface {
	// Name identifies the strategy in logs and configuration.
	Name() string

	// Messages returns the chat messages asking for count new tasks
	// conditioned on examples.
	Messages(kind RequestKind, examples []model.TaskRecord, count int) []oracle.Message

	// Schema names the expected response.
	Schema() oracle.Schema
}

const taskPreamble = "You write instruction-following tasks for a training dataset. " +
	"Each task has an instruction, an optional input and the expected output."

const broadeningGuide = `Create exactly %d new tasks inspired by the example tasks below.
Rules:
1. Stay in the domain of the examples.
2. Each new task covers a concept none of the examples cover.
3. Keep the difficulty and the length close to the examples.
4. Use only factual information a person can follow.
Use %s as input when a task needs no input.`

const deepeningGuide = `Create exactly %d harder tasks derived from the example tasks below.
Rules:
1. Stay in the domain of the examples.
2. Raise the complexity of both the information and the sentence structure.
3. Keep the length close to the examples.
4. Use only factual information a person can follow.
Use %s as input when a task needs no input.`

// General varies tasks using only the sampled examples.
type General struct{}

// NewGeneral returns the general strategy.
func NewGeneral() *General { return &General{} }

func (*General) Name() string { return "general" }

func (*General) Schema() oracle.Schema { return oracle.TaskSchema }

func (*General) Messages(kind RequestKind, examples []model.TaskRecord, count int) []oracle.Message {
	return buildMessages(taskPreamble, kind, examples, count)
}

// Knowledge grounds every request in a domain knowledge text.
type Knowledge struct {
	text string
}

// NewKnowledge returns a knowledge strategy over text.
func NewKnowledge(text string) (*Knowledge, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("knowledge text is empty")
	}
	return &Knowledge{text: text}, nil
}

func (*Knowledge) Name() string { return "knowledge" }

func (*Knowledge) Schema() oracle.Schema { return oracle.TaskSchema }

func (k *Knowledge) Messages(kind RequestKind, examples []model.TaskRecord, count int) []oracle.Message {
	preamble := taskPreamble +
		"\nEvery task must be answerable from the knowledge below and must not contradict it." +
		"\n\nKnowledge:\n" + k.text
	return buildMessages(preamble, kind, examples, count)
}

func buildMessages(preamble string, kind RequestKind, examples []model.TaskRecord, count int) []oracle.Message {
	guide := broadeningGuide
	if kind == Deepening {
		guide = deepeningGuide
	}

	var sb strings.Builder
	sb.WriteString(preamble)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, guide, count, model.NoInput)
	sb.WriteString("\n\nExample tasks:\n")
	sb.WriteString(RenderExamples(examples))

	return []oracle.Message{
		oracle.System(sb.String()),
		oracle.User(fmt.Sprintf("Generate exactly %d tasks following the instructions above.", count)),
	}
}

// RenderExamples formats records as a numbered list. Empty inputs render as
// the no-input sentinel and a trailing colon is stripped from instructions.
func RenderExamples(records []model.TaskRecord) string {
	var sb strings.Builder

	for i, r := range records {
		instruction := strings.TrimSuffix(strings.TrimSpace(r.Instruction), ":")
		fmt.Fprintf(&sb, "%d. Instruction: %s\n", i+1, instruction)
		fmt.Fprintf(&sb, "%d. Input: %s\n", i+1, r.WireInput())
		fmt.Fprintf(&sb, "%d. Output: %s\n", i+1, strings.TrimSpace(r.Output))
	}

	return sb.String()
}

// splitBatch divides a batch between broadening (ceil) and deepening
// (floor).
func splitBatch(batch int) (broadening, deepening int) {
	return (batch + 1) / 2, batch / 2
}
