package oracle

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryOptions configures Retrying.
type RetryOptions struct {
	// MaxTries is the total number of attempts, including the first.
	MaxTries uint

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// MaxElapsedTime bounds the total time spent retrying. 0 disables it.
	MaxElapsedTime time.Duration

	// CheckJSON retries responses that do not decode as JSON.
	CheckJSON bool

	Logger *slog.Logger
}

// DefaultRetryOptions tries three times with exponential backoff.
var DefaultRetryOptions = RetryOptions{
	MaxTries:        3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     10 * time.Second,
	CheckJSON:       true,
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Retrying gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// AttemptsError reports how many attempts a failed request used.
type AttemptsError struct {
	Attempts uint
	Err      error
}

func (e *AttemptsError) Error() string { return e.Err.Error() }
func (e *AttemptsError) Unwrap() error { return e.Err }

// Retrying retries failed requests with exponential backoff.
type Retrying struct {
	inner Client
	opts  RetryOptions
}

// NewRetrying decorates inner with retries.
func NewRetrying(inner Client, optFns ...func(o *RetryOptions)) *Retrying {
	opts := DefaultRetryOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxTries == 0 {
		opts.MaxTries = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Retrying{inner: inner, opts: opts}
}

func (r *Retrying) Complete(ctx context.Context, req Request) (Response, error) {
	var attempts atomic.Uint32

	op := func() (Response, error) {
		attempts.Add(1)

		resp, err := r.inner.Complete(ctx, req)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return Response{}, backoff.Permanent(err)
			}
			var perm *PermanentError
			if errors.As(err, &perm) {
				return Response{}, backoff.Permanent(err)
			}
			return Response{}, err
		}

		if r.opts.CheckJSON && req.Schema.Name != "" {
			var probe any
			if err := Decode(resp, req.Schema.Name, &probe); err != nil {
				return Response{}, err
			}
		}

		return resp, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.opts.InitialInterval
	eb.MaxInterval = r.opts.MaxInterval

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(r.opts.MaxTries),
		backoff.WithMaxElapsedTime(r.opts.MaxElapsedTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.opts.Logger.Warn("oracle request failed, retrying",
				"schema", req.Schema.Name, "attempt", attempts.Load(), "backoff", next, "error", err)
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return Response{}, &AttemptsError{Attempts: uint(attempts.Load()), Err: err}
	}

	return resp, nil
}

func (r *Retrying) Close() error { return r.inner.Close() }
