// Package retry provides the retry policy middleware
package retry

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/jzx17/resilience/pkg/backoff"
	"github.com/jzx17/resilience/pkg/types"
)

// OnRetryFunc observes a qualifying failure before the policy waits for
// the chosen delay. attempt is 1-based and bounded by the retry count.
// Observers are fire-and-forget; panics are isolated from the call.
type OnRetryFunc func(attempt int, resp *http.Response, err error, delay time.Duration)

// Settings configures the retry policy
type Settings struct {
	// Count is the maximum number of retries after the first attempt
	Count int

	// Delay computes the wait before each retry when the failed
	// response carries no usable Retry-After hint
	Delay backoff.DelayFunc

	// OnRetry is invoked before each wait with the failed outcome
	OnRetry OnRetryFunc

	// Classifier overrides the default failure classification
	Classifier types.Classifier
}

// Policy retries qualifying failures with a configurable wait between
// attempts. A server-provided Retry-After value overrides the backoff
// strategy for that wait.
type Policy struct {
	count    int
	delay    backoff.DelayFunc
	onRetry  OnRetryFunc
	classify types.Classifier
	clock    types.Clock
}

// Option configures a Policy
type Option func(*Policy)

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) Option {
	return func(p *Policy) {
		p.clock = clock
	}
}

// New creates a retry policy from settings
func New(settings Settings, opts ...Option) (*Policy, error) {
	if settings.Count < 0 {
		return nil, types.NewConfigError("retry.count", "must not be negative")
	}
	if settings.Count > 0 && settings.Delay == nil {
		return nil, types.NewConfigError("retry.delay", "required when retry count is positive")
	}

	p := &Policy{
		count:    settings.Count,
		delay:    settings.Delay,
		onRetry:  settings.OnRetry,
		classify: settings.Classifier,
		clock:    types.NewRealClock(),
	}
	if p.classify == nil {
		p.classify = types.IsFailure
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Count returns the configured maximum number of retries
func (p *Policy) Count() int {
	return p.count
}

// Wrap returns a handler that retries qualifying failures of next up to
// the configured count. With a count of zero it is a pass-through.
func (p *Policy) Wrap(next types.Handler) types.Handler {
	if p.count == 0 {
		return next
	}

	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		resp, err := next(ctx, req)

		for attempt := 1; attempt <= p.count; attempt++ {
			if !p.classify(resp, err) {
				return resp, err
			}
			if ctx.Err() != nil {
				// the overall budget is spent, hand back the last outcome
				return resp, err
			}

			delay := p.nextDelay(attempt, resp)
			p.notify(attempt, resp, err, delay)
			drain(resp)

			if delay > 0 {
				timer := p.clock.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C():
				}
			}

			if err := rewind(req); err != nil {
				return nil, err
			}
			resp, err = next(ctx, req)
		}

		return resp, err
	}
}

// nextDelay picks the server hint when present, else the backoff value
// for the current attempt index.
func (p *Policy) nextDelay(attempt int, resp *http.Response) time.Duration {
	if d, ok := retryAfter(resp, p.clock.Now()); ok {
		return d
	}
	if p.delay != nil {
		return p.delay(attempt)
	}
	return 0
}

func (p *Policy) notify(attempt int, resp *http.Response, err error, delay time.Duration) {
	if p.onRetry == nil {
		return
	}
	defer func() {
		// observer panics must not reach the pipeline
		_ = recover()
	}()
	p.onRetry(attempt, resp, err, delay)
}

// drainLimit caps how much of a failed response body is read back so
// the connection can be reused.
const drainLimit = 4 << 10

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}

// rewind restores a consumed request body before the next attempt.
func rewind(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return err
	}
	req.Body = body
	return nil
}
