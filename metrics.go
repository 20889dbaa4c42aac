package fission

import (
	"sync/atomic"
	"time"
)

// RejectReason labels why a candidate was not admitted.
type RejectReason string

const (
	RejectSchema    RejectReason = "schema"
	RejectPolicy    RejectReason = "policy"
	RejectDuplicate RejectReason = "duplicate"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus (see package promcollector).
type MetricsCollector interface {
	// RecordIteration is called after each completed iteration with the
	// number of admitted records.
	RecordIteration(duration time.Duration, kept int)

	// RecordRequest is called after each oracle request. err is nil if
	// successful.
	RecordRequest(kind RequestKind, duration time.Duration, err error)

	// RecordCandidates is called with the number of candidates decoded from
	// one response.
	RecordCandidates(kind RequestKind, n int)

	// RecordAdmission is called for every admitted record.
	RecordAdmission()

	// RecordRejection is called for every dropped candidate.
	RecordRejection(reason RejectReason)

	// RecordCheckpoint is called after each checkpoint write.
	RecordCheckpoint(records int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIteration(time.Duration, int)              {}
func (NoopMetricsCollector) RecordRequest(RequestKind, time.Duration, error) {}
func (NoopMetricsCollector) RecordCandidates(RequestKind, int)               {}
func (NoopMetricsCollector) RecordAdmission()                                {}
func (NoopMetricsCollector) RecordRejection(RejectReason)                    {}
func (NoopMetricsCollector) RecordCheckpoint(int, time.Duration, error)      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	Iterations          atomic.Int64
	IterationTotalNanos atomic.Int64
	Requests            atomic.Int64
	RequestErrors       atomic.Int64
	RequestTotalNanos   atomic.Int64
	Candidates          atomic.Int64
	Admissions          atomic.Int64
	SchemaRejections    atomic.Int64
	PolicyRejections    atomic.Int64
	DuplicateRejections atomic.Int64
	Checkpoints         atomic.Int64
	CheckpointErrors    atomic.Int64
}

// RecordIteration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIteration(duration time.Duration, _ int) {
	b.Iterations.Add(1)
	b.IterationTotalNanos.Add(duration.Nanoseconds())
}

// RecordRequest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRequest(_ RequestKind, duration time.Duration, err error) {
	b.Requests.Add(1)
	b.RequestTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RequestErrors.Add(1)
	}
}

// RecordCandidates implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCandidates(_ RequestKind, n int) {
	b.Candidates.Add(int64(n))
}

// RecordAdmission implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdmission() {
	b.Admissions.Add(1)
}

// RecordRejection implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRejection(reason RejectReason) {
	switch reason {
	case RejectSchema:
		b.SchemaRejections.Add(1)
	case RejectPolicy:
		b.PolicyRejections.Add(1)
	default:
		b.DuplicateRejections.Add(1)
	}
}

// RecordCheckpoint implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpoint(_ int, _ time.Duration, err error) {
	b.Checkpoints.Add(1)
	if err != nil {
		b.CheckpointErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		Iterations:          b.Iterations.Load(),
		IterationAvgNanos:   avg(b.IterationTotalNanos.Load(), b.Iterations.Load()),
		Requests:            b.Requests.Load(),
		RequestErrors:       b.RequestErrors.Load(),
		RequestAvgNanos:     avg(b.RequestTotalNanos.Load(), b.Requests.Load()),
		Candidates:          b.Candidates.Load(),
		Admissions:          b.Admissions.Load(),
		SchemaRejections:    b.SchemaRejections.Load(),
		PolicyRejections:    b.PolicyRejections.Load(),
		DuplicateRejections: b.DuplicateRejections.Load(),
		Checkpoints:         b.Checkpoints.Load(),
		CheckpointErrors:    b.CheckpointErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a point-in-time snapshot of BasicMetricsCollector.
type BasicMetricsStats struct {
	Iterations          int64
	IterationAvgNanos   int64
	Requests            int64
	RequestErrors       int64
	RequestAvgNanos     int64
	Candidates          int64
	Admissions          int64
	SchemaRejections    int64
	PolicyRejections    int64
	DuplicateRejections int64
	Checkpoints         int64
	CheckpointErrors    int64
}
