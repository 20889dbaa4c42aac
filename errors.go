package fission

import (
	"errors"
	"fmt"
)

var (
	// ErrTargetNotPositive is returned when a run is started with target <= 0.
	ErrTargetNotPositive = errors.New("target must be positive")

	// ErrNoStrategy is returned when no Strategy is configured.
	ErrNoStrategy = errors.New("no strategy configured")

	// ErrClosed is returned by a closed Orchestrator.
	ErrClosed = errors.New("orchestrator closed")

	// ErrMaxIterations is returned when the iteration limit is reached
	// before the target.
	ErrMaxIterations = errors.New("iteration limit reached")
)

// InsufficientPoolError indicates a sample larger than the seed pool.
type InsufficientPoolError struct {
	Requested int
	Available int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("insufficient seed pool: requested %d, have %d", e.Requested, e.Available)
}

// SchemaValidationError indicates a candidate whose shape or required fields
// are invalid.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type SchemaValidationError struct {
	Field string
	cause error
}

func (e *SchemaValidationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("schema validation failed on %s: %v", e.Field, e.cause)
	}
	return fmt.Sprintf("schema validation failed on %s", e.Field)
}

func (e *SchemaValidationError) Unwrap() error { return e.cause }

// ContentPolicyReject indicates a candidate dropped by a post-processing
// rule (length, denylisted category, punctuation or casing).
type ContentPolicyReject struct {
	Rule   string
	Detail string
}

func (e *ContentPolicyReject) Error() string {
	if e.Detail == "" {
		return "content policy: " + e.Rule
	}
	return fmt.Sprintf("content policy: %s (%s)", e.Rule, e.Detail)
}

// OracleRequestError indicates a request that failed after all retries.
//
// The original underlying error can be accessed via errors.Unwrap.
type OracleRequestError struct {
	Kind  RequestKind
	cause error
}

func (e *OracleRequestError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Kind, e.cause)
}

func (e *OracleRequestError) Unwrap() error { return e.cause }

// rejectReason maps a validation error onto its metric label.
func rejectReason(err error) RejectReason {
	var sve *SchemaValidationError
	if errors.As(err, &sve) {
		return RejectSchema
	}
	return RejectPolicy
}
