package fission

import (
	"github.com/hupe1980/fission/index"
	"github.com/hupe1980/fission/lexical"
	"github.com/hupe1980/fission/oracle"
	"github.com/hupe1980/fission/persistence"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	seed             int64
	variant          Variant
	threshold        float64
	batchSize        int
	numSeed          int
	numGenerated     int
	stopAtTarget     bool
	allowPartial     bool
	maxIterations    int
	sampling         oracle.Sampling
	semantic         *index.Semantic
	lexicalOptions   []func(*lexical.Options)
	validatorOptions []func(*ValidatorOptions)
	checkpointer     *persistence.Checkpointer
	progress         func(RunState)
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		seed:             1,
		variant:          VariantLexical,
		threshold:        0.7,
		batchSize:        10,
		numSeed:          3,
		numGenerated:     2,
		allowPartial:     true,
		sampling:         oracle.DefaultSampling(),
	}
}

// Option configures an Orchestrator.
type Option func(*options)

// WithLogger configures structured logging. If nil is passed, logging is
// disabled.
//
// Example:
//
//	o, _ := fission.New(client, fission.NewGeneral(), seeds,
//	    fission.WithLogger(fission.NewTextLogger(os.Stderr, slog.LevelDebug)),
//	)
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector. Pass nil to disable
// metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &fission.BasicMetricsCollector{}
//	o, _ := fission.New(client, strategy, seeds, fission.WithMetricsCollector(metrics))
//	// ... run ...
//	stats := metrics.GetStats()
//	fmt.Println(stats.Admissions, stats.DuplicateRejections)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithSeed sets the sampling random seed.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithVariant selects the deduplication variant.
func WithVariant(v Variant) Option {
	return func(o *options) {
		o.variant = v
	}
}

// WithThreshold sets the similarity threshold in [0,1].
func WithThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = t
	}
}

// WithBatchSize sets the number of tasks requested per iteration, split
// between broadening and deepening.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithSampleSizes sets how many seed and generated records condition each
// request.
func WithSampleSizes(numSeed, numGenerated int) Option {
	return func(o *options) {
		o.numSeed = numSeed
		o.numGenerated = numGenerated
	}
}

// WithSampling overrides the oracle sampling parameters.
func WithSampling(s oracle.Sampling) Option {
	return func(o *options) {
		o.sampling = s
	}
}

// WithSemanticIndex configures the similarity index used by the semantic
// variants. The orchestrator does not close it.
func WithSemanticIndex(s *index.Semantic) Option {
	return func(o *options) {
		o.semantic = s
	}
}

// WithLexicalOptions configures the lexical scorer.
func WithLexicalOptions(optFns ...func(*lexical.Options)) Option {
	return func(o *options) {
		o.lexicalOptions = append(o.lexicalOptions, optFns...)
	}
}

// WithValidatorOptions configures the candidate post-processing rules.
func WithValidatorOptions(optFns ...func(*ValidatorOptions)) Option {
	return func(o *options) {
		o.validatorOptions = append(o.validatorOptions, optFns...)
	}
}

// WithCheckpointer persists the generated pool after every iteration and
// resumes from it on start.
func WithCheckpointer(c *persistence.Checkpointer) Option {
	return func(o *options) {
		o.checkpointer = c
	}
}

// StopAtTarget stops admitting exactly at the target instead of finishing
// the last batch.
func StopAtTarget() Option {
	return func(o *options) {
		o.stopAtTarget = true
	}
}

// AllowPartial controls whether an iteration proceeds when one of its two
// requests fails. Enabled by default.
func AllowPartial(allow bool) Option {
	return func(o *options) {
		o.allowPartial = allow
	}
}

// WithMaxIterations bounds the number of iterations of a run. Zero means
// unbounded.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		o.maxIterations = n
	}
}

// WithProgress registers a callback invoked with the state after every
// iteration.
func WithProgress(fn func(RunState)) Option {
	return func(o *options) {
		o.progress = fn
	}
}
