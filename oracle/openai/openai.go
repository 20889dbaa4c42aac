// Package openai implements oracle.Client on OpenAI-compatible chat
// completion endpoints with JSON-schema structured output.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/hupe1980/fission/oracle"
)

// Compile-time check.
var _ oracle.Client = (*Client)(nil)

// Options configures the client.
type Options struct {
	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is the chat model name.
	Model string

	// Strict enables strict JSON-schema adherence.
	Strict bool

	Logger *slog.Logger
}

var DefaultOptions = Options{
	Model:  goopenai.GPT4oMini,
	Strict: true,
}

// Client calls the chat completion endpoint.
type Client struct {
	client *goopenai.Client
	opts   Options
	closed atomic.Bool
}

// New creates a client authenticated with apiKey.
func New(apiKey string, optFns ...func(o *Options)) *Client {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Client{
		client: goopenai.NewClientWithConfig(cfg),
		opts:   opts,
	}
}

// Complete sends one chat completion request.
func (c *Client) Complete(ctx context.Context, req oracle.Request) (oracle.Response, error) {
	if c.closed.Load() {
		return oracle.Response{}, oracle.ErrClosed
	}

	chatReq, err := c.buildRequest(req)
	if err != nil {
		return oracle.Response{}, oracle.Permanent(err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.opts.Logger.Error("chat completion failed", "model", c.opts.Model, "schema", req.Schema.Name, "error", err)
		return oracle.Response{}, classify(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return oracle.Response{}, oracle.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if choice.FinishReason == goopenai.FinishReasonLength {
		return oracle.Response{}, oracle.ErrTruncated
	}

	c.opts.Logger.Debug("chat completion",
		"model", resp.Model,
		"schema", req.Schema.Name,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return oracle.Response{
		Content:          choice.Message.Content,
		Model:            resp.Model,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Close marks the client closed. The underlying HTTP client is shared.
func (c *Client) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *Client) buildRequest(req oracle.Request) (goopenai.ChatCompletionRequest, error) {
	msgs := make([]goopenai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = goopenai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	chatReq := goopenai.ChatCompletionRequest{
		Model:            c.opts.Model,
		Messages:         msgs,
		MaxTokens:        req.Sampling.MaxTokens,
		Temperature:      req.Sampling.Temperature,
		TopP:             req.Sampling.TopP,
		FrequencyPenalty: req.Sampling.FrequencyPenalty,
		PresencePenalty:  req.Sampling.PresencePenalty,
		Seed:             req.Sampling.Seed,
	}

	if req.Schema.Prototype != nil {
		schema, err := jsonschema.GenerateSchemaForType(req.Schema.Prototype)
		if err != nil {
			return goopenai.ChatCompletionRequest{}, fmt.Errorf("generate schema %s: %w", req.Schema.Name, err)
		}

		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: schema,
				Strict: c.opts.Strict,
			},
		}
	}

	return chatReq, nil
}

// classify marks client errors other than rate limiting and timeouts as
// permanent.
func classify(err error) error {
	status := 0

	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError

	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return err
	case status >= 400 && status < 500:
		return oracle.Permanent(err)
	default:
		return err
	}
}
