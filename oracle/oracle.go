// Package oracle defines the structured-output text generation client used
// to propose new task records.
//
// A Request carries the chat messages, the name and prototype of the
// expected JSON response and the sampling parameters. Implementations return
// the raw response text; Decode turns it into the prototype type.
//
// Clients compose:
//
//	var c oracle.Client = openai.New(apiKey)
//	c = oracle.NewGated(c, resource.NewController(resource.Config{MaxInFlight: 2}))
//	c = oracle.NewRetrying(c)
package oracle

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrEmptyResponse is returned when the oracle produced no choices or
	// no content.
	ErrEmptyResponse = errors.New("oracle: empty response")

	// ErrTruncated is returned when generation stopped at the token limit.
	ErrTruncated = errors.New("oracle: response truncated")

	// ErrClosed is returned by a closed client.
	ErrClosed = errors.New("oracle: client closed")
)

// Role of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat message.
type Message struct {
	Role    Role
	Content string
}

// Sampling holds the generation parameters.
type Sampling struct {
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
	MaxTokens        int

	// Seed requests deterministic sampling when the backend supports it.
	Seed *int
}

// DefaultSampling favors diverse, novel completions.
func DefaultSampling() Sampling {
	return Sampling{
		Temperature:      1.1,
		TopP:             0.5,
		FrequencyPenalty: 1.0,
		MaxTokens:        2048,
	}
}

// Schema names the expected response shape. Prototype is a value of the Go
// type the response decodes into; backends derive a JSON schema from it.
type Schema struct {
	Name      string
	Prototype any
}

// Request is a single structured completion request.
type Request struct {
	Messages []Message
	Schema   Schema
	Sampling Sampling
}

// Response is the raw completion.
type Response struct {
	Content          string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Client completes structured requests.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Close() error
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// JSON returns the response content with any Markdown code fence removed.
func (r Response) JSON() []byte {
	s := strings.TrimSpace(r.Content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			// drop the language tag line
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}

	return []byte(strings.TrimSpace(s))
}
