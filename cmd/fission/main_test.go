package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fission"
	"github.com/hupe1980/fission/blobstore"
	"github.com/hupe1980/fission/codec"
	"github.com/hupe1980/fission/config"
	"github.com/hupe1980/fission/persistence"
	"github.com/hupe1980/fission/testutil"
)

// chatServer answers every chat completion with one novel task.
func chatServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := calls.Add(1)
		content := testutil.TasksResponse(testutil.NovelTask(int(n))).Content

		body := map[string]any{
			"id":    fmt.Sprintf("chat-%d", n),
			"model": "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(codec.MustMarshal(nil, body))
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

var questions = []string{
	"What is the derivative of sine?",
	"Name the largest moon of Saturn.",
	"Who painted the ceiling of the Sistine Chapel?",
	"Convert 100 degrees Celsius to Fahrenheit.",
	"Which gas do plants absorb during photosynthesis?",
	"Summarize the plot of Hamlet briefly.",
}

// seedServer answers seed generation requests by response schema name.
func seedServer(t *testing.T) *httptest.Server {
	t.Helper()

	var next atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResponseFormat struct {
				JSONSchema struct {
					Name string `json:"name"`
				} `json:"json_schema"`
			} `json:"response_format"`
		}
		raw, _ := io.ReadAll(r.Body)
		if err := codec.Default.Unmarshal(raw, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var payload any
		switch req.ResponseFormat.JSONSchema.Name {
		case "syllabus":
			payload = map[string]any{
				"subject":   "Saturn",
				"subtopics": []string{"moons"},
				"syllabus":  []map[string]any{{"session_name": "Moons", "description": "", "key_concepts": []string{"Titan"}}},
			}
		case "question_list":
			var list []map[string]string
			for range 3 {
				i := next.Add(1) - 1
				list = append(list, map[string]string{"question": questions[int(i)%len(questions)], "input": ""})
			}
			payload = map[string]any{"questions": list}
		case "answer":
			payload = map[string]string{"answer": "An answer."}
		default:
			http.Error(w, "unexpected schema", http.StatusBadRequest)
			return
		}

		body := map[string]any{
			"id":    "chat",
			"model": "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": string(codec.MustMarshal(nil, payload))},
			}},
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(codec.MustMarshal(nil, body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func writeConfig(t *testing.T, dir, baseURL, extra string) string {
	t.Helper()

	path := filepath.Join(dir, "fission.yaml")
	doc := fmt.Sprintf(`run:
  seed_path: seeds.jsonl
  output: generated.json
  batch_size: 2
oracle:
  base_url: %s/v1
  initial_backoff: 1ms
  max_backoff: 2ms
dedup:
  variant: lexical
storage:
  backend: local
  root: %s
%s`, baseURL, dir, extra)

	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestRunCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := blobstore.NewLocalStore(dir)

	require.NoError(t, persistence.WriteSeeds(ctx, store, "seeds.jsonl", testutil.SeedTasks()))

	srv, calls := chatServer(t)
	path := writeConfig(t, dir, srv.URL, "")

	root := newRootCmd()
	root.SetArgs([]string{"run", "--config", path, "--target", "3", "--stop-at-target", "--no-progress", "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(ctx))

	records, err := persistence.New(store, "generated.json").Load(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.GreaterOrEqual(t, calls.Load(), int64(3))
}

func TestRunCommand_MissingSeeds(t *testing.T) {
	dir := t.TempDir()
	srv, _ := chatServer(t)
	path := writeConfig(t, dir, srv.URL, "")

	root := newRootCmd()
	root.SetArgs([]string{"run", "--config", path, "--log-level", "error"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestRunCommand_InvalidFlags(t *testing.T) {
	dir := t.TempDir()
	srv, _ := chatServer(t)
	path := writeConfig(t, dir, srv.URL, "")

	root := newRootCmd()
	root.SetArgs([]string{"run", "--config", path, "--threshold", "2"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestSeedCommand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	knowledge := filepath.Join(dir, "knowledge.txt")
	require.NoError(t, os.WriteFile(knowledge, []byte("Saturn has many moons. Titan is the largest."), 0o600))

	srv := seedServer(t)
	path := writeConfig(t, dir, srv.URL, "")

	root := newRootCmd()
	root.SetArgs([]string{"seed", "--config", path, "--knowledge", knowledge, "--target", "3", "--batch", "3", "--log-level", "error"})
	require.NoError(t, root.ExecuteContext(ctx))

	seeds, err := persistence.LoadSeeds(ctx, blobstore.NewLocalStore(dir), "seed_tasks.jsonl")
	require.NoError(t, err)
	require.Len(t, seeds, 3)
	assert.Equal(t, questions[0], seeds[0].Instruction)
	assert.Equal(t, "An answer.", seeds[0].Output)
}

func TestSeedCommand_RequiresSource(t *testing.T) {
	dir := t.TempDir()
	srv := seedServer(t)
	path := writeConfig(t, dir, srv.URL, "")

	root := newRootCmd()
	root.SetArgs([]string{"seed", "--config", path, "--log-level", "error"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestOverride(t *testing.T) {
	cmd := newRootCmd()
	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	require.NoError(t, run.ParseFlags([]string{"--target", "7", "--threshold", "0.4", "--stop-at-target"}))

	cfg := config.Default()
	override(run.Flags(), "target", &cfg.Run.Target)
	override(run.Flags(), "threshold", &cfg.Dedup.Threshold)
	override(run.Flags(), "stop-at-target", &cfg.Run.StopAtTarget)
	override(run.Flags(), "batch", &cfg.Run.BatchSize)
	override(run.Flags(), "no-such-flag", &cfg.Run.Output)

	assert.Equal(t, 7, cfg.Run.Target)
	assert.Equal(t, 0.4, cfg.Dedup.Threshold)
	assert.True(t, cfg.Run.StopAtTarget)
	assert.Equal(t, config.Default().Run.BatchSize, cfg.Run.BatchSize)
}

func TestNewSemantic(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantNil bool
		wantErr bool
	}{
		{"lexical", func(c *config.Config) { c.Dedup.Variant = "lexical" }, true, false},
		{"flat", func(*config.Config) {}, false, false},
		{"hnsw cosine", func(c *config.Config) {
			c.Dedup.Index = "hnsw"
			c.Dedup.Metric = "cosine"
		}, false, false},
		{"badger cache", func(c *config.Config) { c.Embedding.CachePath = t.TempDir() }, false, false},
		{"unknown index", func(c *config.Config) { c.Dedup.Index = "annoy" }, false, true},
		{"unknown provider", func(c *config.Config) { c.Embedding.Provider = "word2vec" }, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)

			var cl closers
			defer func() { assert.NoError(t, cl.Close()) }()

			sem, err := newSemantic(ctx, cfg, fission.NoopLogger().Logger, &cl)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			if tt.wantNil {
				assert.Nil(t, sem)
				return
			}

			_, err = sem.Insert(ctx, "Name the largest moon of Saturn.", "seed_0")
			require.NoError(t, err)

			nb, ok, err := sem.QueryNearest(ctx, "Name the largest moon of Saturn.")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "seed_0", nb.SourceID)
			assert.InDelta(t, 0, nb.Distance, 1e-5)
		})
	}
}

func TestNewEmbedder_WarnsOnHashing(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantWarn bool
	}{
		{"no key", "", "", true},
		{"key present", "", "sk-test", false},
		{"explicit hashing", "hashing", "sk-test", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			cfg := config.Default()
			cfg.Embedding.Provider = tt.provider
			cfg.Oracle.APIKey = tt.apiKey

			var cl closers
			defer func() { assert.NoError(t, cl.Close()) }()

			emb, err := newEmbedder(cfg, logger, &cl)
			require.NoError(t, err)
			require.NotNil(t, emb)

			assert.Equal(t, tt.wantWarn, strings.Contains(buf.String(), "offline stand-in"))
		})
	}
}

func TestNewStore(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Root = t.TempDir()

	store, err := newStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.LocalStore{}, store)

	cfg.Storage.Backend = "ftp"
	_, err = newStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	dir := t.TempDir()
	knowledge := filepath.Join(dir, "knowledge.txt")
	require.NoError(t, os.WriteFile(knowledge, []byte("Saturn has many moons."), 0o600))

	src, err := newSource(config.SeedgenConfig{Discipline: "Astronomy"})
	require.NoError(t, err)
	assert.Equal(t, "general", src.Name())

	src, err = newSource(config.SeedgenConfig{KnowledgePath: knowledge})
	require.NoError(t, err)
	assert.Equal(t, "knowledge", src.Name())
	assert.Equal(t, "Saturn has many moons.", src.Context())

	_, err = newSource(config.SeedgenConfig{})
	assert.Error(t, err)

	_, err = newSource(config.SeedgenConfig{Discipline: "Astronomy", KnowledgePath: knowledge})
	assert.Error(t, err)
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer

	assert.False(t, isTerminal(&buf))

	bar := newProgressBar(&buf, 4)
	assert.InDelta(t, 0.5, bar.percent(2), 1e-9)
	assert.InDelta(t, 1.0, bar.percent(9), 1e-9)

	bar.Update(fission.RunState{Target: 4, Generated: 2, Iteration: 1})
	assert.Contains(t, buf.String(), "2/4 iter 1")
	assert.False(t, strings.HasSuffix(buf.String(), "\n"))

	bar.Update(fission.RunState{Target: 4, Generated: 4, Iteration: 2})
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}
