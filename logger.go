package fission

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with fission-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs to w.
// If w is nil, logs go to stderr.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs to w.
// If w is nil, logs go to stderr.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithRun adds the run id to the logger.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", runID),
	}
}

// LogIteration logs the summary line of one loop iteration.
func (l *Logger) LogIteration(ctx context.Context, s RunState, requestDur, processDur time.Duration, kept int) {
	l.InfoContext(ctx, "iteration completed",
		"iteration", s.Iteration,
		"request_duration", requestDur,
		"processing_duration", processDur,
		"kept", kept,
		"generated", s.Generated,
	)
}

// LogRequest logs a finished oracle request.
func (l *Logger) LogRequest(ctx context.Context, kind RequestKind, candidates int, dur time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "oracle request failed",
			"kind", kind.String(),
			"duration", dur,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "oracle request completed",
			"kind", kind.String(),
			"candidates", candidates,
			"duration", dur,
		)
	}
}

// LogAdmission logs the admission decision for a candidate.
func (l *Logger) LogAdmission(ctx context.Context, d Decision) {
	if d.Admitted {
		l.DebugContext(ctx, "candidate admitted",
			"source_id", d.SourceID,
			"overlap", d.Overlap.Score,
			"distance", d.Neighbor.Distance,
		)
	} else {
		l.DebugContext(ctx, "candidate rejected as duplicate",
			"instruction", d.Record.Instruction,
			"overlap", d.Overlap.Score,
			"nearest", d.Neighbor.SourceID,
			"distance", d.Neighbor.Distance,
		)
	}
}

// LogRejected logs a candidate dropped during validation.
func (l *Logger) LogRejected(ctx context.Context, instruction string, err error) {
	if rejectReason(err) == RejectSchema {
		l.WarnContext(ctx, "candidate failed validation",
			"instruction", instruction,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "candidate dropped",
			"instruction", instruction,
			"reason", err,
		)
	}
}

// LogCheckpoint logs a checkpoint write.
func (l *Logger) LogCheckpoint(ctx context.Context, name string, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "checkpoint failed",
			"name", name,
			"records", records,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "checkpoint saved",
			"name", name,
			"records", records,
		)
	}
}

// LogResume logs records restored from a checkpoint.
func (l *Logger) LogResume(ctx context.Context, name string, records int) {
	l.InfoContext(ctx, "resumed from checkpoint",
		"name", name,
		"records", records,
	)
}
