package model

import (
	"fmt"
	"strings"
)

// NoInput is the sentinel an oracle (or a seed file) uses for "this task has no input".
// Records hold an empty Input instead; the sentinel only appears on the wire.
const NoInput = "<noinput>"

// TaskRecord is a single instruction-following example.
type TaskRecord struct {
	Instruction string `json:"instruction" validate:"required"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// Normalize returns a copy with all fields trimmed and the no-input sentinel
// replaced by an empty input.
func (r TaskRecord) Normalize() TaskRecord {
	out := TaskRecord{
		Instruction: strings.TrimSpace(r.Instruction),
		Input:       strings.TrimSpace(r.Input),
		Output:      strings.TrimSpace(r.Output),
	}
	if strings.EqualFold(out.Input, NoInput) {
		out.Input = ""
	}
	return out
}

// Valid reports whether r may enter a record pool: the instruction must be
// non-empty after trimming, and input and output must not both be empty.
func (r TaskRecord) Valid() bool {
	if strings.TrimSpace(r.Instruction) == "" {
		return false
	}
	return strings.TrimSpace(r.Input) != "" || strings.TrimSpace(r.Output) != ""
}

// WireInput returns the input as it is shown to an oracle.
func (r TaskRecord) WireInput() string {
	if r.Input == "" {
		return NoInput
	}
	return r.Input
}

// Origin identifies which pool partition a record belongs to.
type Origin uint8

const (
	OriginSeed Origin = iota
	OriginGenerated
)

func (o Origin) String() string {
	switch o {
	case OriginSeed:
		return "seed"
	case OriginGenerated:
		return "gen"
	default:
		return fmt.Sprintf("Origin(%d)", o)
	}
}

// SourceID builds the stable source identifier for the i-th record of a pool
// partition (e.g. "seed_3", "gen_12").
func SourceID(o Origin, i int) string {
	return fmt.Sprintf("%s_%d", o, i)
}
