package oracle

import (
	"context"

	"github.com/hupe1980/fission/resource"
)

// Gated holds a resource slot for the duration of each request.
type Gated struct {
	inner Client
	ctrl  *resource.Controller
}

// NewGated decorates inner with the controller's limits.
func NewGated(inner Client, ctrl *resource.Controller) *Gated {
	return &Gated{inner: inner, ctrl: ctrl}
}

func (g *Gated) Complete(ctx context.Context, req Request) (Response, error) {
	if err := g.ctrl.AcquireTokens(ctx, req.Sampling.MaxTokens); err != nil {
		return Response{}, err
	}
	if err := g.ctrl.Acquire(ctx); err != nil {
		return Response{}, err
	}
	defer g.ctrl.Release()

	return g.inner.Complete(ctx, req)
}

func (g *Gated) Close() error { return g.inner.Close() }
