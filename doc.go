// Package fission synthesizes instruction-following task records by
// repeatedly asking a generative oracle for variations of a seed set and
// keeping only the candidates that are novel relative to everything kept so
// far.
//
// # Loop
//
// Every iteration samples seed and previously generated records, sends a
// broadening and a deepening request concurrently, validates the returned
// candidates, deduplicates them greedily and persists the generated pool:
//
//	SAMPLING → REQUESTING → VALIDATING → DEDUPLICATING → PERSISTING → (loop | DONE)
//
// The run ends once the generated pool reaches the target. The last batch may
// overshoot the target unless StopAtTarget is set.
//
// # Quick Start
//
//	client := oracle.NewRetrying(openai.New(os.Getenv("OPENAI_API_KEY")))
//
//	o, _ := fission.New(client, fission.NewGeneral(), seeds,
//	    fission.WithThreshold(0.7),
//	    fission.WithBatchSize(10),
//	    fission.WithCheckpointer(persistence.New(blobstore.NewLocalStore("."), "generated.jsonl")),
//	)
//	defer o.Close()
//
//	state, err := o.Run(ctx, 1000)
//
// # Deduplication
//
// VariantLexical rejects candidates whose instruction has a ROUGE-L
// F-measure above the threshold against any reference. VariantSemantic
// rejects candidates whose nearest neighbor in an index.Semantic is at a
// distance at or below the threshold. VariantBoth requires both checks to
// pass.
//
// # Resume
//
// With a checkpointer configured, an existing checkpoint is loaded into the
// generated pool and registered as references before the first iteration.
package fission
