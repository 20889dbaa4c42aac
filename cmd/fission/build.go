package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/fission"
	"github.com/hupe1980/fission/blobstore"
	"github.com/hupe1980/fission/blobstore/minio"
	"github.com/hupe1980/fission/blobstore/s3"
	"github.com/hupe1980/fission/cache"
	"github.com/hupe1980/fission/config"
	"github.com/hupe1980/fission/distance"
	"github.com/hupe1980/fission/embed"
	embedopenai "github.com/hupe1980/fission/embed/openai"
	"github.com/hupe1980/fission/index"
	"github.com/hupe1980/fission/index/flat"
	"github.com/hupe1980/fission/index/hnsw"
	"github.com/hupe1980/fission/index/weaviate"
	"github.com/hupe1980/fission/oracle"
	oracleopenai "github.com/hupe1980/fission/oracle/openai"
	"github.com/hupe1980/fission/resource"
)

func newLogger(cfg config.Config, w io.Writer) *fission.Logger {
	if cfg.Log.Format == "json" {
		return fission.NewJSONLogger(w, cfg.SlogLevel())
	}
	return fission.NewTextLogger(w, cfg.SlogLevel())
}

// newOracle stacks retry over the rate gate over the OpenAI client, so every
// attempt passes the gate.
func newOracle(cfg config.Config, logger *slog.Logger) oracle.Client {
	oc := cfg.Oracle

	client := oracleopenai.New(oc.APIKey, func(o *oracleopenai.Options) {
		o.BaseURL = oc.BaseURL
		o.Model = oc.Model
		o.Strict = oc.Strict
		o.Logger = logger
	})

	gated := oracle.NewGated(client, resource.NewController(resource.Config{
		MaxInFlight:       oc.MaxInFlight,
		RequestsPerSecond: oc.RequestsPerSecond,
		TokensPerMinute:   oc.TokensPerMinute,
	}))

	return oracle.NewRetrying(gated, func(o *oracle.RetryOptions) {
		o.MaxTries = oc.MaxTries
		if oc.InitialBackoff > 0 {
			o.InitialInterval = oc.InitialBackoff
		}
		if oc.MaxBackoff > 0 {
			o.MaxInterval = oc.MaxBackoff
		}
		o.Logger = logger
	})
}

// closers collects cleanup functions and runs them in reverse order.
type closers []func() error

func (c *closers) add(fn func() error) { *c = append(*c, fn) }

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newEmbedder(cfg config.Config, logger *slog.Logger, cl *closers) (embed.Embedder, error) {
	ec := cfg.Embedding

	var inner embed.Embedder

	switch provider := cfg.EmbeddingProvider(); provider {
	case "openai":
		inner = embedopenai.New(cfg.Oracle.APIKey, func(o *embedopenai.Options) {
			o.BaseURL = cfg.Oracle.BaseURL
			if ec.Model != "" {
				o.Model = ec.Model
			}
			o.BatchSize = ec.BatchSize
		})
	case "hashing":
		logger.Warn("hashing embedder is an offline stand-in, distances reflect shared words",
			"variant", cfg.Dedup.Variant,
			"hint", "set OPENAI_API_KEY or embedding.provider: openai",
		)
		inner = embed.NewHashing(ec.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}

	if ec.CachePath == "" {
		return embed.NewCached(inner, cache.NewMemory()), nil
	}

	store, err := cache.OpenBadger(func(o *cache.BadgerOptions) {
		o.Path = ec.CachePath
		o.Logger = logger
	})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	cl.add(store.Close)

	return embed.NewCached(inner, store), nil
}

func newVectorIndex(ctx context.Context, cfg config.Config) (index.VectorIndex, error) {
	metric, err := distance.ParseMetric(cfg.Dedup.Metric)
	if err != nil {
		return nil, err
	}

	switch cfg.Dedup.Index {
	case "flat":
		return flat.New(func(o *flat.Options) { o.Metric = metric })
	case "hnsw":
		return hnsw.New(func(o *hnsw.Options) {
			o.Metric = metric
			o.Seed = cfg.Run.Seed
		})
	case "weaviate":
		wc := cfg.Dedup.Weaviate
		return weaviate.New(ctx, func(o *weaviate.Options) {
			o.Host = wc.Host
			o.Scheme = wc.Scheme
			o.Class = wc.Class
			o.Metric = metric
		})
	default:
		return nil, fmt.Errorf("unknown index %q", cfg.Dedup.Index)
	}
}

// newSemantic builds the semantic index, or returns nil for the lexical
// variant.
func newSemantic(ctx context.Context, cfg config.Config, logger *slog.Logger, cl *closers) (*index.Semantic, error) {
	if cfg.Dedup.Variant == "lexical" {
		return nil, nil
	}

	embedder, err := newEmbedder(cfg, logger, cl)
	if err != nil {
		return nil, err
	}

	vectors, err := newVectorIndex(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sem, err := index.NewSemantic(embedder, vectors)
	if err != nil {
		_ = vectors.Close()
		return nil, err
	}
	cl.add(sem.Close)

	return sem, nil
}

func newStore(ctx context.Context, cfg config.Config) (blobstore.BlobStore, error) {
	sc := cfg.Storage

	switch sc.Backend {
	case "local":
		return blobstore.NewLocalStore(sc.Root), nil
	case "s3":
		return s3.NewFromEnv(ctx, sc.Bucket, sc.Prefix)
	case "minio":
		return minio.Connect(sc.Endpoint, sc.AccessKey, sc.SecretKey, sc.Secure, sc.Bucket, sc.Prefix)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}
