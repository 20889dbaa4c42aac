// Package openai implements embed.Embedder on the OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/hupe1980/fission/embed"
)

// Compile-time check.
var _ embed.Embedder = (*Embedder)(nil)

// Options configures the embedder.
type Options struct {
	// BaseURL overrides the API endpoint (OpenAI-compatible servers).
	BaseURL string

	// Model is the embedding model name.
	Model string

	// BatchSize is the maximum number of texts per request.
	BatchSize int
}

var DefaultOptions = Options{
	Model:     string(goopenai.SmallEmbedding3),
	BatchSize: 256,
}

// Embedder calls the embeddings endpoint.
type Embedder struct {
	client *goopenai.Client
	opts   Options
	dim    atomic.Int64
}

// New creates an embedder authenticated with apiKey.
func New(apiKey string, optFns ...func(o *Options)) *Embedder {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &Embedder{
		client: goopenai.NewClientWithConfig(cfg),
		opts:   opts,
	}
}

func (e *Embedder) ModelName() string { return e.opts.Model }

func (e *Embedder) Dimension() int { return int(e.dim.Load()) }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))

	for lo := 0; lo < len(texts); lo += e.opts.BatchSize {
		hi := min(lo+e.opts.BatchSize, len(texts))

		resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
			Input: texts[lo:hi],
			Model: goopenai.EmbeddingModel(e.opts.Model),
		})
		if err != nil {
			slog.Error("embedding request failed", "model", e.opts.Model, "error", err)
			return nil, fmt.Errorf("create embeddings: %w", err)
		}

		if len(resp.Data) != hi-lo {
			return nil, embed.ErrCountMismatch
		}

		batch := make([][]float32, hi-lo)
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
			}
			batch[d.Index] = d.Embedding
		}

		out = append(out, batch...)
	}

	if len(out) > 0 {
		e.dim.Store(int64(len(out[0])))
	}

	return out, nil
}
