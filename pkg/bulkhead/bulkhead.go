// Package bulkhead bounds concurrent executions of a handler
package bulkhead

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/semaphore"

	"github.com/jzx17/resilience/pkg/types"
)

// ErrFull is returned by a non-queueing bulkhead when all execution
// slots are taken.
var ErrFull = errors.New("bulkhead is full")

// Policy limits how many calls may execute concurrently, isolating the
// destination from load spikes. By default excess calls queue until a
// slot frees or their context ends.
type Policy struct {
	sem   *semaphore.Weighted
	queue bool
}

// Option configures a Policy
type Option func(*Policy)

// WithoutQueue rejects excess calls with ErrFull instead of queueing.
func WithoutQueue() Option {
	return func(p *Policy) {
		p.queue = false
	}
}

// New creates a bulkhead permitting maxConcurrent executions.
func New(maxConcurrent int64, opts ...Option) (*Policy, error) {
	if maxConcurrent < 1 {
		return nil, types.NewConfigError("bulkhead.maxConcurrent", "must be at least 1")
	}

	p := &Policy{
		sem:   semaphore.NewWeighted(maxConcurrent),
		queue: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Wrap returns a handler that holds an execution slot for the duration
// of each call.
func (p *Policy) Wrap(next types.Handler) types.Handler {
	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		if p.queue {
			if err := p.sem.Acquire(ctx, 1); err != nil {
				return nil, err
			}
		} else if !p.sem.TryAcquire(1) {
			return nil, ErrFull
		}
		defer p.sem.Release(1)

		return next(ctx, req)
	}
}
