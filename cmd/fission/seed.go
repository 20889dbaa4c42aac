package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/fission/config"
	"github.com/hupe1980/fission/persistence"
	"github.com/hupe1980/fission/seedgen"
)

func newSeedCmd(a *app) *cobra.Command {
	d := config.Default()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Bootstrap a seed file from a discipline or a knowledge text",
		Long: `Seed asks the oracle for a syllabus, collects distinct homework questions
from its sessions and answers them. The result is a JSONL seed file for run.

Pass either --discipline or --knowledge.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applySeedFlags(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.seed(cmd)
		},
	}

	f := cmd.Flags()
	f.String("discipline", d.Seedgen.Discipline, "discipline to derive subjects from")
	f.String("knowledge", d.Seedgen.KnowledgePath, "knowledge text file to derive a syllabus from")
	f.StringP("output", "o", d.Seedgen.Output, "seed file to write")
	f.IntP("target", "n", d.Seedgen.Target, "number of questions to collect")
	f.IntP("batch", "b", d.Seedgen.Batch, "questions requested per session")
	f.Float64("threshold", d.Dedup.Threshold, "semantic distance a question must exceed")
	f.String("embedder", d.Embedding.Provider, "embedding provider (hashing, openai; default openai when OPENAI_API_KEY is set)")
	f.Int("max-rounds", d.Seedgen.MaxRounds, "stop after this many syllabus passes (0 = unbounded)")

	return cmd
}

func applySeedFlags(cmd *cobra.Command, a *app) {
	fs := cmd.Flags()
	c := &a.cfg

	override(fs, "discipline", &c.Seedgen.Discipline)
	override(fs, "knowledge", &c.Seedgen.KnowledgePath)
	override(fs, "output", &c.Seedgen.Output)
	override(fs, "target", &c.Seedgen.Target)
	override(fs, "batch", &c.Seedgen.Batch)
	override(fs, "threshold", &c.Dedup.Threshold)
	override(fs, "embedder", &c.Embedding.Provider)
	override(fs, "max-rounds", &c.Seedgen.MaxRounds)
}

func newSource(sc config.SeedgenConfig) (seedgen.Source, error) {
	switch {
	case sc.KnowledgePath != "" && sc.Discipline != "":
		return nil, errors.New("pass either a discipline or a knowledge file, not both")
	case sc.KnowledgePath != "":
		text, err := os.ReadFile(sc.KnowledgePath)
		if err != nil {
			return nil, fmt.Errorf("read knowledge: %w", err)
		}
		return seedgen.NewKnowledge(string(text), sc.MaxSessions)
	case sc.Discipline != "":
		return seedgen.NewGeneral(sc.Discipline, func(o *seedgen.GeneralOptions) {
			o.MaxSubjects = sc.MaxSubjects
			o.MaxSubtopics = sc.MaxSubtopics
			o.MaxSessions = sc.MaxSessions
		})
	default:
		return nil, errors.New("a discipline or a knowledge file is required")
	}
}

func (a *app) seed(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := a.cfg
	sc := cfg.Seedgen
	slogger := a.logger.Logger

	source, err := newSource(sc)
	if err != nil {
		return err
	}

	var cl closers
	defer func() {
		if err := cl.Close(); err != nil {
			a.logger.WarnContext(ctx, "cleanup failed", "error", err)
		}
	}()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	// Questions are always deduplicated semantically.
	semCfg := cfg
	semCfg.Dedup.Variant = "semantic"

	semantic, err := newSemantic(ctx, semCfg, slogger, &cl)
	if err != nil {
		return err
	}

	client := newOracle(cfg, slogger)
	cl.add(client.Close)

	gen, err := seedgen.New(client, source, semantic, func(o *seedgen.Options) {
		if sc.Target > 0 {
			o.Target = sc.Target
		}
		if sc.Batch > 0 {
			o.Batch = sc.Batch
		}
		if sc.AnswerWorkers > 0 {
			o.AnswerWorkers = sc.AnswerWorkers
		}
		o.Threshold = cfg.Dedup.Threshold
		o.MaxRounds = sc.MaxRounds
		o.Seed = cfg.Run.Seed
		o.Logger = slogger
	})
	if err != nil {
		return err
	}

	records, err := gen.Generate(ctx)
	if err != nil {
		return err
	}

	if err := persistence.WriteSeeds(ctx, store, sc.Output, records); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "seed file written",
		"source", source.Name(),
		"records", len(records),
		"output", sc.Output,
	)

	return nil
}
