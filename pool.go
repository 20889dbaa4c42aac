package fission

import (
	"slices"
	"sync"

	"github.com/hupe1980/fission/model"
)

// RecordPool holds the accepted records: an immutable seed partition and an
// append-only generated partition.
type RecordPool struct {
	mu        sync.RWMutex
	seed      []model.TaskRecord
	generated []model.TaskRecord
}

// NewRecordPool creates a pool over a copy of seed.
func NewRecordPool(seed []model.TaskRecord) *RecordPool {
	return &RecordPool{seed: slices.Clone(seed)}
}

// Seed returns a copy of the seed partition.
func (p *RecordPool) Seed() []model.TaskRecord {
	return slices.Clone(p.seed)
}

// Generated returns a copy of the generated partition.
func (p *RecordPool) Generated() []model.TaskRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return slices.Clone(p.generated)
}

// SeedLen returns the number of seed records.
func (p *RecordPool) SeedLen() int { return len(p.seed) }

// GeneratedLen returns the number of generated records.
func (p *RecordPool) GeneratedLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.generated)
}

// Append adds records to the generated partition.
func (p *RecordPool) Append(records ...model.TaskRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generated = append(p.generated, records...)
}

// view calls fn with the partitions under the read lock. fn must not retain
// or modify them.
func (p *RecordPool) view(fn func(seed, generated []model.TaskRecord)) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	fn(p.seed, p.generated)
}

// Phase is a state of the generation loop.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseSampling
	PhaseRequesting
	PhaseValidating
	PhaseDeduplicating
	PhasePersisting
	PhaseDone
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseSampling:
		return "SAMPLING"
	case PhaseRequesting:
		return "REQUESTING"
	case PhaseValidating:
		return "VALIDATING"
	case PhaseDeduplicating:
		return "DEDUPLICATING"
	case PhasePersisting:
		return "PERSISTING"
	case PhaseDone:
		return "DONE"
	case PhaseError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// RunState is the bookkeeping of a run. It is passed through every
// iteration and returned to the caller, so a run can be inspected and
// continued.
type RunState struct {
	RunID     string
	Target    int
	Phase     Phase
	Iteration int

	// Generated is the size of the generated partition after the last
	// admission step.
	Generated int

	Requests       int
	FailedRequests int
	Candidates     int
	Admitted       int
	Rejected       map[RejectReason]int
}

// Done reports whether the target has been reached.
func (s RunState) Done() bool {
	return s.Generated >= s.Target
}

func (s RunState) reject(reason RejectReason) RunState {
	m := make(map[RejectReason]int, len(s.Rejected)+1)
	for k, v := range s.Rejected {
		m[k] = v
	}
	m[reason]++
	s.Rejected = m
	return s
}
