package fission

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/fission/model"
)

func TestLogger(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	l := NewJSONLogger(&buf, slog.LevelDebug).WithRun("run-1")

	l.LogIteration(ctx, RunState{Iteration: 2, Generated: 7}, time.Second, time.Millisecond, 3)
	l.LogRequest(ctx, Deepening, 0, time.Second, errors.New("boom"))
	l.LogAdmission(ctx, Decision{Record: model.TaskRecord{Instruction: "x"}, Admitted: true, SourceID: "gen_1"})
	l.LogRejected(ctx, "y", &ContentPolicyReject{Rule: "denied prefix"})
	l.LogCheckpoint(ctx, "out.json", 7, nil)

	out := buf.String()
	assert.Contains(t, out, `"run":"run-1"`)
	assert.Contains(t, out, `"msg":"iteration completed"`)
	assert.Contains(t, out, `"kept":3`)
	assert.Contains(t, out, `"kind":"deepening"`)
	assert.Contains(t, out, `"source_id":"gen_1"`)
	assert.Contains(t, out, `"msg":"candidate dropped"`)
	assert.Contains(t, out, `"msg":"checkpoint saved"`)
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
