package fission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/fission/lexical"
	"github.com/hupe1980/fission/model"
	"github.com/hupe1980/fission/oracle"
)

// Orchestrator drives the generation loop: sample, request, validate,
// deduplicate, admit, persist. It owns its oracle client.
//
// Run and Step are not safe for concurrent use; Close is.
type Orchestrator struct {
	client    oracle.Client
	strategy  Strategy
	opts      options
	pool      *RecordPool
	sampler   *Sampler
	validator *Validator
	filter    *Filter

	mu          sync.Mutex
	closed      bool
	seedsPrimed bool
	restored    bool
}

// New creates an Orchestrator over a seed pool.
func New(client oracle.Client, strategy Strategy, seeds []model.TaskRecord, optFns ...Option) (*Orchestrator, error) {
	if client == nil {
		return nil, errors.New("oracle client is required")
	}
	if strategy == nil {
		return nil, ErrNoStrategy
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.batchSize)
	}
	if opts.numSeed < 0 || opts.numGenerated < 0 {
		return nil, fmt.Errorf("negative sample sizes (%d, %d)", opts.numSeed, opts.numGenerated)
	}

	normalized := make([]model.TaskRecord, len(seeds))
	for i, r := range seeds {
		r = r.Normalize()
		if !r.Valid() {
			return nil, fmt.Errorf("seed %d: %w", i, &SchemaValidationError{Field: "record"})
		}
		normalized[i] = r
	}

	filter, err := NewFilter(opts.variant, opts.threshold, lexical.New(opts.lexicalOptions...), opts.semantic)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		client:    client,
		strategy:  strategy,
		opts:      opts,
		pool:      NewRecordPool(normalized),
		sampler:   NewSampler(opts.seed),
		validator: NewValidator(opts.validatorOptions...),
		filter:    filter,
	}, nil
}

// Pool returns the record pool.
func (o *Orchestrator) Pool() *RecordPool { return o.pool }

// Prime registers the seed records as references and restores the generated
// pool from the checkpoint, if one is configured and exists. Restored records
// are normalized and validated like seeds. Each stage runs once, so a Prime
// retried after a failure does not register records twice; Run and Step call
// it implicitly.
func (o *Orchestrator) Prime(ctx context.Context) error {
	if o.seedsPrimed && o.restored {
		return nil
	}

	var restored []model.TaskRecord

	cp := o.opts.checkpointer
	if cp != nil && !o.restored {
		records, err := cp.Load(ctx)
		if err != nil {
			return fmt.Errorf("resume %s: %w", cp.Name(), err)
		}

		restored = make([]model.TaskRecord, len(records))
		for i, r := range records {
			r = r.Normalize()
			if !r.Valid() {
				return fmt.Errorf("resume %s: record %d: %w", cp.Name(), i, &SchemaValidationError{Field: "record"})
			}
			restored[i] = r
		}
	}

	if !o.seedsPrimed {
		if err := o.filter.Prime(ctx, o.pool.seed, model.OriginSeed, 0); err != nil {
			return err
		}
		o.seedsPrimed = true
	}

	if len(restored) > 0 {
		if err := o.filter.Prime(ctx, restored, model.OriginGenerated, 0); err != nil {
			return err
		}
		o.pool.Append(restored...)
		o.opts.logger.LogResume(ctx, cp.Name(), len(restored))
	}

	o.restored = true

	return nil
}

// Run iterates until the generated pool holds at least target records.
// The returned state reflects the last completed step even on error; the
// last checkpoint stays valid.
func (o *Orchestrator) Run(ctx context.Context, target int) (RunState, error) {
	if target <= 0 {
		return RunState{}, ErrTargetNotPositive
	}
	if o.isClosed() {
		return RunState{}, ErrClosed
	}

	state := RunState{
		RunID:  uuid.NewString(),
		Target: target,
	}

	if err := o.Prime(ctx); err != nil {
		state.Phase = PhaseError
		return state, err
	}

	state.Generated = o.pool.GeneratedLen()

	for !state.Done() {
		if o.opts.maxIterations > 0 && state.Iteration >= o.opts.maxIterations {
			state.Phase = PhaseError
			return state, ErrMaxIterations
		}

		var err error
		if state, err = o.Step(ctx, state); err != nil {
			return state, err
		}
	}

	state.Phase = PhaseDone

	return state, nil
}

// Step runs a single iteration and returns the updated state.
func (o *Orchestrator) Step(ctx context.Context, state RunState) (RunState, error) {
	if o.isClosed() {
		return state, ErrClosed
	}
	if err := o.Prime(ctx); err != nil {
		state.Phase = PhaseError
		return state, err
	}

	logger := o.opts.logger.WithRun(state.RunID)
	metrics := o.opts.metricsCollector

	iterStart := time.Now()
	state.Iteration++

	fail := func(err error) (RunState, error) {
		state.Phase = PhaseError
		return state, err
	}

	state.Phase = PhaseSampling

	sample, err := o.sampler.Sample(o.pool, o.opts.numSeed, o.opts.numGenerated)
	if err != nil {
		return fail(err)
	}

	state.Phase = PhaseRequesting

	results := o.request(ctx, logger, sample.Records())
	requestDur := time.Since(iterStart)

	var (
		candidates []model.TaskRecord
		malformed  []error
		errs       []error
	)

	for _, r := range results {
		state.Requests++
		if r.err != nil {
			state.FailedRequests++
			errs = append(errs, r.err)
			continue
		}
		candidates = append(candidates, r.records...)
		malformed = append(malformed, r.malformed...)
	}

	if len(errs) == len(results) || (len(errs) > 0 && !o.opts.allowPartial) {
		return fail(errors.Join(errs...))
	}

	processStart := time.Now()
	state.Phase = PhaseValidating
	state.Candidates += len(candidates) + len(malformed)

	for _, err := range malformed {
		state = state.reject(RejectSchema)
		metrics.RecordRejection(RejectSchema)
		logger.LogRejected(ctx, "", err)
	}

	valid := make([]model.TaskRecord, 0, len(candidates))

	for _, c := range candidates {
		r, err := o.validator.Check(c)
		if err != nil {
			reason := rejectReason(err)
			state = state.reject(reason)
			metrics.RecordRejection(reason)
			logger.LogRejected(ctx, c.Instruction, err)
			continue
		}
		valid = append(valid, r)
	}

	state.Phase = PhaseDeduplicating

	limit := -1
	if o.opts.stopAtTarget {
		limit = max(0, state.Target-o.pool.GeneratedLen())
	}

	decisions, err := o.filter.Admit(ctx, valid, o.pool.GeneratedLen(), limit)

	admitted := make([]model.TaskRecord, 0, len(decisions))

	for _, d := range decisions {
		logger.LogAdmission(ctx, d)
		if d.Admitted {
			admitted = append(admitted, d.Record)
			metrics.RecordAdmission()
		} else {
			state = state.reject(RejectDuplicate)
			metrics.RecordRejection(RejectDuplicate)
		}
	}

	o.pool.Append(admitted...)
	state.Admitted += len(admitted)
	state.Generated = o.pool.GeneratedLen()

	if err != nil {
		return fail(err)
	}

	state.Phase = PhasePersisting

	if cp := o.opts.checkpointer; cp != nil {
		start := time.Now()
		generated := o.pool.Generated()
		err := cp.Save(ctx, generated)
		metrics.RecordCheckpoint(len(generated), time.Since(start), err)
		logger.LogCheckpoint(ctx, cp.Name(), len(generated), err)
		if err != nil {
			return fail(fmt.Errorf("checkpoint: %w", err))
		}
	}

	logger.LogIteration(ctx, state, requestDur, time.Since(processStart), len(admitted))
	metrics.RecordIteration(time.Since(iterStart), len(admitted))

	if state.Done() {
		state.Phase = PhaseDone
	}

	if o.opts.progress != nil {
		o.opts.progress(state)
	}

	return state, nil
}

// Close closes the oracle client. Further runs fail with ErrClosed.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	return o.client.Close()
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.closed
}

// requestResult carries the decoded records of one request and a
// SchemaValidationError per item that did not decode.
type requestResult struct {
	kind      RequestKind
	records   []model.TaskRecord
	malformed []error
	err       error
}

// request dispatches the broadening and deepening requests concurrently and
// returns their results in that order.
func (o *Orchestrator) request(ctx context.Context, logger *Logger, examples []model.TaskRecord) []requestResult {
	broad, deep := splitBatch(o.opts.batchSize)

	type job struct {
		kind  RequestKind
		count int
	}

	jobs := []job{{Broadening, broad}}
	if deep > 0 {
		jobs = append(jobs, job{Deepening, deep})
	}

	results := make([]requestResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(2)

	for i, j := range jobs {
		g.Go(func() error {
			results[i] = o.complete(ctx, logger, j.kind, examples, j.count)
			return nil
		})
	}

	_ = g.Wait()

	return results
}

func (o *Orchestrator) complete(ctx context.Context, logger *Logger, kind RequestKind, examples []model.TaskRecord, count int) requestResult {
	start := time.Now()

	req := oracle.Request{
		Messages: o.strategy.Messages(kind, examples, count),
		Schema:   o.strategy.Schema(),
		Sampling: o.opts.sampling,
	}

	resp, err := o.client.Complete(ctx, req)

	var (
		records []model.TaskRecord
		bad     []*oracle.ItemError
	)
	if err == nil {
		records, bad, err = oracle.DecodeTasks(resp)
	}

	dur := time.Since(start)

	if err != nil {
		err = &OracleRequestError{Kind: kind, cause: err}
	}

	count = len(records) + len(bad)

	logger.LogRequest(ctx, kind, count, dur, err)
	o.opts.metricsCollector.RecordRequest(kind, dur, err)

	if err == nil {
		o.opts.metricsCollector.RecordCandidates(kind, count)
	}

	malformed := make([]error, len(bad))
	for i, ie := range bad {
		malformed[i] = &SchemaValidationError{Field: fmt.Sprintf("tasks[%d]", ie.Index), cause: ie.Err}
	}

	return requestResult{kind: kind, records: records, malformed: malformed, err: err}
}
