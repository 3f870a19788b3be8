// Package timeout provides the deadline policy middleware
package timeout

import (
	"context"
	"net/http"
	"time"

	"github.com/jzx17/resilience/pkg/types"
)

// Policy bounds a call with a hard deadline. It is applied at two
// scopes with independent durations: overall, wrapping the entire retry
// sequence, and per-attempt, wrapping each individual call inside the
// retry loop. Expiry cancels only the wrapped call.
type Policy struct {
	limit time.Duration
	scope types.TimeoutScope
	clock types.Clock
}

// Option configures a Policy
type Option func(*Policy)

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) Option {
	return func(p *Policy) {
		p.clock = clock
	}
}

// New creates a timeout policy. A zero limit disables the deadline.
func New(limit time.Duration, scope types.TimeoutScope, opts ...Option) (*Policy, error) {
	if limit < 0 {
		return nil, types.NewConfigError("timeout."+string(scope), "must not be negative")
	}

	p := &Policy{
		limit: limit,
		scope: scope,
		clock: types.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Limit returns the configured deadline
func (p *Policy) Limit() time.Duration {
	return p.limit
}

type outcome struct {
	resp *http.Response
	err  error
}

// Wrap returns a handler that aborts next once the deadline expires,
// producing a TimeoutError for this policy's scope.
func (p *Policy) Wrap(next types.Handler) types.Handler {
	if p.limit == 0 {
		return next
	}

	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		done := make(chan outcome, 1)
		go func() {
			resp, err := next(callCtx, req)
			done <- outcome{resp: resp, err: err}
		}()

		timer := p.clock.NewTimer(p.limit)
		defer timer.Stop()

		select {
		case o := <-done:
			return o.resp, o.err
		case <-timer.C():
			cancel()
			reap(done)
			return nil, &types.TimeoutError{Scope: p.scope, Limit: p.limit}
		case <-ctx.Done():
			cancel()
			reap(done)
			return nil, ctx.Err()
		}
	}
}

// reap closes the body of a response that arrives after the call was
// abandoned. Cancellation forces the attempt to return promptly, so the
// goroutine is short-lived.
func reap(done <-chan outcome) {
	go func() {
		if o := <-done; o.resp != nil && o.resp.Body != nil {
			_ = o.resp.Body.Close()
		}
	}()
}
