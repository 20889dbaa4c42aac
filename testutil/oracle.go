package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/hupe1980/fission/codec"
	"github.com/hupe1980/fission/model"
	"github.com/hupe1980/fission/oracle"
)

// ScriptFunc produces the response for the call-th request (zero based).
type ScriptFunc func(req oracle.Request, call int) (oracle.Response, error)

var _ oracle.Client = (*StubOracle)(nil)

// StubOracle is a deterministic oracle.Client driven by a ScriptFunc.
// It is safe for concurrent use.
type StubOracle struct {
	mu       sync.Mutex
	script   ScriptFunc
	requests []oracle.Request
	closed   bool
}

// NewStubOracle creates a StubOracle.
func NewStubOracle(script ScriptFunc) *StubOracle {
	return &StubOracle{script: script}
}

// Complete implements oracle.Client.
func (s *StubOracle) Complete(ctx context.Context, req oracle.Request) (oracle.Response, error) {
	if err := ctx.Err(); err != nil {
		return oracle.Response{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return oracle.Response{}, oracle.ErrClosed
	}
	call := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	return s.script(req, call)
}

// Close implements oracle.Client.
func (s *StubOracle) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Calls returns the number of requests seen.
func (s *StubOracle) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// Requests returns a copy of the requests seen.
func (s *StubOracle) Requests() []oracle.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]oracle.Request(nil), s.requests...)
}

// Closed reports whether Close was called.
func (s *StubOracle) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// TasksResponse encodes records as a task list response.
func TasksResponse(records ...model.TaskRecord) oracle.Response {
	if records == nil {
		records = []model.TaskRecord{}
	}
	return oracle.Response{
		Content:      string(codec.MustMarshal(codec.Default, oracle.TaskList{Tasks: records})),
		Model:        "stub",
		FinishReason: "stop",
	}
}

// SystemContains reports whether the system message of req contains s.
func SystemContains(req oracle.Request, s string) bool {
	for _, m := range req.Messages {
		if m.Role == oracle.RoleSystem && strings.Contains(m.Content, s) {
			return true
		}
	}
	return false
}
