// Package config loads the fission application configuration from YAML,
// applies defaults and environment secrets, and validates it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/fission/oracle"
)

// Config is the top-level application configuration.
type Config struct {
	Run       RunConfig       `yaml:"run"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Seedgen   SeedgenConfig   `yaml:"seedgen"`
}

// RunConfig controls the generation loop.
type RunConfig struct {
	SeedPath      string `yaml:"seed_path"`
	Output        string `yaml:"output" validate:"required"`
	Target        int    `yaml:"target" validate:"gt=0"`
	BatchSize     int    `yaml:"batch_size" validate:"gt=0"`
	NumSeed       int    `yaml:"num_seed" validate:"gte=0"`
	NumGenerated  int    `yaml:"num_generated" validate:"gte=0"`
	Seed          int64  `yaml:"seed"`
	StopAtTarget  bool   `yaml:"stop_at_target"`
	AllowPartial  bool   `yaml:"allow_partial"`
	MaxIterations int    `yaml:"max_iterations" validate:"gte=0"`
	Strategy      string `yaml:"strategy" validate:"oneof=general knowledge"`
	KnowledgePath string `yaml:"knowledge_path" validate:"required_if=Strategy knowledge"`
}

// OracleConfig configures the chat completion client.
type OracleConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"-"`
	Model             string        `yaml:"model" validate:"required"`
	Strict            bool          `yaml:"strict"`
	MaxTries          uint          `yaml:"max_tries" validate:"gte=1"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	MaxInFlight       int64         `yaml:"max_in_flight" validate:"gte=1"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	TokensPerMinute   int64         `yaml:"tokens_per_minute" validate:"gte=0"`
	Temperature       float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	TopP              float32       `yaml:"top_p" validate:"gte=0,lte=1"`
	FrequencyPenalty  float32       `yaml:"frequency_penalty" validate:"gte=-2,lte=2"`
	MaxTokens         int           `yaml:"max_tokens" validate:"gt=0"`
}

// DedupConfig configures candidate deduplication.
type DedupConfig struct {
	Variant   string  `yaml:"variant" validate:"oneof=lexical semantic both"`
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`
	Workers   int     `yaml:"workers" validate:"gte=1"`
	Index     string  `yaml:"index" validate:"oneof=flat hnsw weaviate"`
	Metric    string  `yaml:"metric" validate:"oneof=l2 cosine dot"`

	Weaviate WeaviateConfig `yaml:"weaviate"`
}

// WeaviateConfig locates a Weaviate instance.
type WeaviateConfig struct {
	Host   string `yaml:"host"`
	Scheme string `yaml:"scheme" validate:"oneof=http https"`
	Class  string `yaml:"class" validate:"required"`
}

// EmbeddingConfig configures the embedder.
type EmbeddingConfig struct {
	// Provider is "openai" or "hashing". Empty selects openai when an API
	// key is set and hashing otherwise; see Config.EmbeddingProvider.
	Provider  string `yaml:"provider" validate:"omitempty,oneof=hashing openai"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension" validate:"gt=0"`
	BatchSize int    `yaml:"batch_size" validate:"gt=0"`

	// CachePath persists embeddings in a Badger directory. Empty keeps them
	// in memory.
	CachePath string `yaml:"cache_path"`
}

// StorageConfig selects the blob store for seeds and checkpoints.
type StorageConfig struct {
	Backend   string `yaml:"backend" validate:"oneof=local s3 minio"`
	Root      string `yaml:"root"`
	Bucket    string `yaml:"bucket" validate:"required_unless=Backend local"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint" validate:"required_if=Backend minio"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Secure    bool   `yaml:"secure"`

	// Codec encodes checkpoint records: "go-json" or "json".
	Codec string `yaml:"codec" validate:"oneof=go-json json"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `yaml:"addr"`
}

// SeedgenConfig configures seed bootstrapping.
type SeedgenConfig struct {
	Discipline    string `yaml:"discipline"`
	KnowledgePath string `yaml:"knowledge_path"`
	Output        string `yaml:"output"`
	Target        int    `yaml:"target" validate:"gte=0"`
	Batch         int    `yaml:"batch" validate:"gte=0"`
	MaxSubjects   int    `yaml:"max_subjects" validate:"gte=0"`
	MaxSubtopics  int    `yaml:"max_subtopics" validate:"gte=0"`
	MaxSessions   int    `yaml:"max_sessions" validate:"gte=0"`
	AnswerWorkers int    `yaml:"answer_workers" validate:"gte=0"`
	MaxRounds     int    `yaml:"max_rounds" validate:"gte=0"`
}

// Default returns the default configuration.
func Default() Config {
	s := oracle.DefaultSampling()

	return Config{
		Run: RunConfig{
			SeedPath:     "seed_tasks.jsonl",
			Output:       "generated.json",
			Target:       100,
			BatchSize:    10,
			NumSeed:      3,
			NumGenerated: 2,
			Seed:         1,
			AllowPartial: true,
			Strategy:     "general",
		},
		Oracle: OracleConfig{
			Model:            "gpt-4o-mini",
			Strict:           true,
			MaxTries:         3,
			InitialBackoff:   500 * time.Millisecond,
			MaxBackoff:       10 * time.Second,
			MaxInFlight:      2,
			Temperature:      s.Temperature,
			TopP:             s.TopP,
			FrequencyPenalty: s.FrequencyPenalty,
			MaxTokens:        s.MaxTokens,
		},
		Dedup: DedupConfig{
			Variant:   "semantic",
			Threshold: 0.7,
			Workers:   4,
			Index:     "flat",
			Metric:    "l2",
			Weaviate: WeaviateConfig{
				Host:   "localhost:8080",
				Scheme: "http",
				Class:  "FissionInstruction",
			},
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			Dimension: 256,
			BatchSize: 256,
		},
		Storage: StorageConfig{
			Backend: "local",
			Root:    ".",
			Codec:   "go-json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Seedgen: SeedgenConfig{
			Output:        "seed_tasks.jsonl",
			Target:        100,
			Batch:         5,
			MaxSubjects:   5,
			MaxSubtopics:  5,
			MaxSessions:   5,
			AnswerWorkers: 8,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults. Secrets are taken from the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.ApplyEnv(os.Getenv)

	return cfg, nil
}

// Parse decodes YAML into cfg, keeping values the document does not set.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}

	return nil
}

// ApplyEnv fills secrets and endpoints from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
	if v := getenv("OPENAI_BASE_URL"); v != "" && c.Oracle.BaseURL == "" {
		c.Oracle.BaseURL = v
	}
	if v := getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Dedup.Index == "weaviate" && c.Dedup.Weaviate.Host == "" {
		return errors.New("invalid config: dedup.weaviate.host is required")
	}
	// A base URL may point at a local server that needs no key.
	if c.Oracle.APIKey == "" && c.Oracle.BaseURL == "" {
		return errors.New("invalid config: OPENAI_API_KEY is not set")
	}

	return nil
}

// EmbeddingProvider resolves the embedding provider. An explicit provider
// wins. Otherwise openai is used when an API key is set. The hashing
// embedder is an offline stand-in: its distances reflect shared words, not
// meaning, so semantic dedup over it behaves like a second lexical check.
func (c *Config) EmbeddingProvider() string {
	if c.Embedding.Provider != "" {
		return c.Embedding.Provider
	}
	if c.Oracle.APIKey != "" {
		return "openai"
	}
	return "hashing"
}

// Sampling returns the oracle sampling parameters.
func (c *Config) Sampling() oracle.Sampling {
	return oracle.Sampling{
		Temperature:      c.Oracle.Temperature,
		TopP:             c.Oracle.TopP,
		FrequencyPenalty: c.Oracle.FrequencyPenalty,
		MaxTokens:        c.Oracle.MaxTokens,
	}
}

// SlogLevel maps the configured level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
