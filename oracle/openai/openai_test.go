package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission/codec"
	"github.com/hupe1980/fission/oracle"
)

func TestClient_Complete(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, codec.Default.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "x", "model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"tasks\": []}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer srv.Close()

	c := New("key", func(o *Options) {
		o.BaseURL = srv.URL + "/v1"
		o.Model = "test-model"
	})

	resp, err := c.Complete(context.Background(), oracle.Request{
		Messages: []oracle.Message{oracle.System("sys"), oracle.User("usr")},
		Schema:   oracle.TaskSchema,
		Sampling: oracle.DefaultSampling(),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"tasks": []}`, resp.Content)
	assert.Equal(t, 10, resp.PromptTokens)
	assert.Equal(t, 3, resp.CompletionTokens)

	assert.Equal(t, "test-model", body["model"])
	assert.InDelta(t, 1.1, body["temperature"], 1e-6)
	assert.InDelta(t, 0.5, body["top_p"], 1e-6)

	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])

	require.NoError(t, c.Close())
	_, err = c.Complete(context.Background(), oracle.Request{})
	assert.ErrorIs(t, err, oracle.ErrClosed)
}

func TestClient_Truncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"index": 0, "finish_reason": "length",
			"message": {"role": "assistant", "content": "{\"tasks\": ["}}]}`))
	}))
	defer srv.Close()

	c := New("key", func(o *Options) { o.BaseURL = srv.URL + "/v1" })

	_, err := c.Complete(context.Background(), oracle.Request{})
	assert.ErrorIs(t, err, oracle.ErrTruncated)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"BadRequest", &goopenai.APIError{HTTPStatusCode: 400}, true},
		{"Unauthorized", &goopenai.RequestError{HTTPStatusCode: 401}, true},
		{"RateLimited", &goopenai.APIError{HTTPStatusCode: 429}, false},
		{"ServerError", &goopenai.APIError{HTTPStatusCode: 503}, false},
		{"Network", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var perm *oracle.PermanentError
			assert.Equal(t, tt.permanent, errors.As(classify(tt.err), &perm))
		})
	}
}
