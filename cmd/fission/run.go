package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/fission"
	"github.com/hupe1980/fission/codec"
	"github.com/hupe1980/fission/config"
	"github.com/hupe1980/fission/lexical"
	"github.com/hupe1980/fission/persistence"
	"github.com/hupe1980/fission/promcollector"
)

func newRunCmd(a *app) *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate tasks until the target is reached",
		Long: `Run samples in-context examples from the seed and generated pools, asks the
oracle for broadening and deepening tasks, drops candidates that fail
validation or duplicate an earlier record, and checkpoints the generated pool
after every iteration. An existing checkpoint is resumed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applyRunFlags(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.run(cmd)
		},
	}

	f := cmd.Flags()
	f.StringP("seed-file", "s", d.Run.SeedPath, "JSONL seed file in the configured storage")
	f.StringP("output", "o", d.Run.Output, "checkpoint file (.json, .jsonl, optionally .zst or .lz4)")
	f.IntP("target", "n", d.Run.Target, "number of tasks to generate")
	f.IntP("batch", "b", d.Run.BatchSize, "tasks requested per iteration")
	f.Int("num-seed", d.Run.NumSeed, "seed examples per request")
	f.Int("num-generated", d.Run.NumGenerated, "generated examples per request")
	f.Int64("seed", d.Run.Seed, "sampling seed")
	f.Float64("threshold", d.Dedup.Threshold, "dedup threshold in [0,1]")
	f.String("variant", d.Dedup.Variant, "dedup variant (lexical, semantic, both)")
	f.String("index", d.Dedup.Index, "vector index (flat, hnsw, weaviate)")
	f.String("embedder", d.Embedding.Provider, "embedding provider (hashing, openai; default openai when OPENAI_API_KEY is set)")
	f.String("strategy", d.Run.Strategy, "prompt strategy (general, knowledge)")
	f.String("knowledge", d.Run.KnowledgePath, "knowledge text file for the knowledge strategy")
	f.String("model", d.Oracle.Model, "chat model")
	f.Bool("stop-at-target", d.Run.StopAtTarget, "admit no more than the target")
	f.Bool("allow-partial", d.Run.AllowPartial, "continue when one of the two requests fails")
	f.Int("max-iterations", d.Run.MaxIterations, "stop after this many iterations (0 = unbounded)")
	f.Bool("no-progress", false, "disable the progress bar")

	return cmd
}

func applyRunFlags(cmd *cobra.Command, a *app) {
	fs := cmd.Flags()
	c := &a.cfg

	override(fs, "seed-file", &c.Run.SeedPath)
	override(fs, "output", &c.Run.Output)
	override(fs, "target", &c.Run.Target)
	override(fs, "batch", &c.Run.BatchSize)
	override(fs, "num-seed", &c.Run.NumSeed)
	override(fs, "num-generated", &c.Run.NumGenerated)
	override(fs, "seed", &c.Run.Seed)
	override(fs, "threshold", &c.Dedup.Threshold)
	override(fs, "variant", &c.Dedup.Variant)
	override(fs, "index", &c.Dedup.Index)
	override(fs, "embedder", &c.Embedding.Provider)
	override(fs, "strategy", &c.Run.Strategy)
	override(fs, "knowledge", &c.Run.KnowledgePath)
	override(fs, "model", &c.Oracle.Model)
	override(fs, "stop-at-target", &c.Run.StopAtTarget)
	override(fs, "allow-partial", &c.Run.AllowPartial)
	override(fs, "max-iterations", &c.Run.MaxIterations)
}

func newStrategy(rc config.RunConfig) (fission.Strategy, error) {
	if rc.Strategy != "knowledge" {
		return fission.NewGeneral(), nil
	}

	text, err := os.ReadFile(rc.KnowledgePath)
	if err != nil {
		return nil, fmt.Errorf("read knowledge: %w", err)
	}

	return fission.NewKnowledge(string(text))
}

func (a *app) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := a.cfg
	slogger := a.logger.Logger

	var cl closers
	defer func() {
		if err := cl.Close(); err != nil {
			a.logger.WarnContext(ctx, "cleanup failed", "error", err)
		}
	}()

	stopMetrics := a.serveMetrics(ctx)
	defer stopMetrics()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	seeds, err := persistence.LoadSeeds(ctx, store, cfg.Run.SeedPath)
	if err != nil {
		return err
	}

	recordCodec, ok := codec.ByName(cfg.Storage.Codec)
	if !ok {
		return fmt.Errorf("unknown codec %q", cfg.Storage.Codec)
	}
	checkpointer := persistence.New(store, cfg.Run.Output, func(o *persistence.Options) { o.Codec = recordCodec })

	strategy, err := newStrategy(cfg.Run)
	if err != nil {
		return err
	}

	variant, err := fission.ParseVariant(cfg.Dedup.Variant)
	if err != nil {
		return err
	}

	semantic, err := newSemantic(ctx, cfg, slogger, &cl)
	if err != nil {
		return err
	}

	opts := []fission.Option{
		fission.WithLogger(a.logger),
		fission.WithMetricsCollector(promcollector.New(a.registry)),
		fission.WithSeed(cfg.Run.Seed),
		fission.WithVariant(variant),
		fission.WithThreshold(cfg.Dedup.Threshold),
		fission.WithBatchSize(cfg.Run.BatchSize),
		fission.WithSampleSizes(cfg.Run.NumSeed, cfg.Run.NumGenerated),
		fission.WithSampling(cfg.Sampling()),
		fission.WithLexicalOptions(func(o *lexical.Options) { o.Workers = cfg.Dedup.Workers }),
		fission.WithCheckpointer(checkpointer),
		fission.AllowPartial(cfg.Run.AllowPartial),
		fission.WithMaxIterations(cfg.Run.MaxIterations),
	}
	if semantic != nil {
		opts = append(opts, fission.WithSemanticIndex(semantic))
	}
	if cfg.Run.StopAtTarget {
		opts = append(opts, fission.StopAtTarget())
	}

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if !noProgress && isTerminal(cmd.ErrOrStderr()) {
		bar := newProgressBar(cmd.ErrOrStderr(), cfg.Run.Target)
		opts = append(opts, fission.WithProgress(bar.Update))
	}

	client := newOracle(cfg, slogger)

	orch, err := fission.New(client, strategy, seeds, opts...)
	if err != nil {
		_ = client.Close()
		return err
	}
	defer orch.Close()

	state, err := orch.Run(ctx, cfg.Run.Target)
	if err != nil {
		return fmt.Errorf("run %s stopped in %s: %w", state.RunID, state.Phase, err)
	}

	a.logger.InfoContext(ctx, "run completed",
		"run", state.RunID,
		"generated", state.Generated,
		"iterations", state.Iteration,
		"output", cfg.Run.Output,
	)

	return nil
}
