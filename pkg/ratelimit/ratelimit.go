// Package ratelimit paces outbound calls with a token bucket
package ratelimit

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/jzx17/resilience/pkg/types"
)

// Policy delays calls so the sustained request rate stays under the
// configured limit. Waits honor the call's context.
type Policy struct {
	limiter *rate.Limiter
}

// New creates a rate limit of rps requests per second with the given
// burst size.
func New(rps float64, burst int) (*Policy, error) {
	if rps <= 0 {
		return nil, types.NewConfigError("ratelimit.rps", "must be positive")
	}
	if burst < 1 {
		return nil, types.NewConfigError("ratelimit.burst", "must be at least 1")
	}
	return &Policy{limiter: rate.NewLimiter(rate.Limit(rps), burst)}, nil
}

// Wrap returns a handler that reserves a token before each call.
func (p *Policy) Wrap(next types.Handler) types.Handler {
	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}
