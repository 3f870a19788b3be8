// Package pipeline composes resilience policies into a handler chain
package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jzx17/resilience/pkg/backoff"
	"github.com/jzx17/resilience/pkg/breaker"
	"github.com/jzx17/resilience/pkg/bulkhead"
	"github.com/jzx17/resilience/pkg/ratelimit"
	"github.com/jzx17/resilience/pkg/retry"
	"github.com/jzx17/resilience/pkg/timeout"
	"github.com/jzx17/resilience/pkg/types"
)

// Named defaults applied when the caller supplies none.
const (
	// DefaultRetryCount is the default number of retries after the first attempt
	DefaultRetryCount = 3

	// DefaultInitialDelay is the default initial delay for the
	// deterministic backoff strategies
	DefaultInitialDelay = 200 * time.Millisecond

	// DefaultMedianJitterDelay is the default median delay for the
	// decorrelated jitter strategy
	DefaultMedianJitterDelay = 100 * time.Millisecond

	// DefaultFailureThreshold is the default circuit breaker failure ratio
	DefaultFailureThreshold = 0.5

	// DefaultMinimumThroughput is the default sample count before the
	// breaker threshold applies
	DefaultMinimumThroughput = 10

	// DefaultSamplingDuration is the default breaker sliding window
	DefaultSamplingDuration = 30 * time.Second

	// DefaultBreakDuration is the default breaker cool-down
	DefaultBreakDuration = 30 * time.Second

	// DefaultOverallTimeout bounds the whole call, retries and waits included
	DefaultOverallTimeout = 100 * time.Second

	// DefaultAttemptTimeout bounds each individual attempt
	DefaultAttemptTimeout = 10 * time.Second

	// DefaultRateBurst is the default burst size when a rate limit is set
	DefaultRateBurst = 1
)

// Config enumerates the pipeline's policy configuration surface.
type Config struct {
	// OverallTimeout bounds the entire retry sequence
	OverallTimeout time.Duration

	// AttemptTimeout bounds each individual attempt
	AttemptTimeout time.Duration

	// Retry configures the retry policy
	Retry retry.Settings

	// Breaker configures the circuit breaker policy
	Breaker breaker.Settings

	// HostSpecific keys circuit state by destination host
	HostSpecific bool

	// MaxConcurrent bounds concurrent executions when positive
	MaxConcurrent int64

	// RateLimit paces calls to this many per second when positive
	RateLimit float64

	// RateBurst is the token bucket burst size for RateLimit
	RateBurst int
}

// withDefaults fills unset fields with the named defaults.
func (c Config) withDefaults() Config {
	if c.OverallTimeout == 0 {
		c.OverallTimeout = DefaultOverallTimeout
	}
	if c.AttemptTimeout == 0 {
		c.AttemptTimeout = DefaultAttemptTimeout
	}
	if c.Retry.Count == 0 && c.Retry.Delay == nil {
		c.Retry.Count = DefaultRetryCount
	}
	if c.Retry.Delay == nil && c.Retry.Count > 0 {
		// the error path is unreachable for a fixed valid strategy
		c.Retry.Delay, _ = backoff.Func(backoff.Jitter, DefaultMedianJitterDelay)
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = DefaultFailureThreshold
	}
	if c.Breaker.MinimumThroughput == 0 {
		c.Breaker.MinimumThroughput = DefaultMinimumThroughput
	}
	if c.Breaker.SamplingDuration == 0 {
		c.Breaker.SamplingDuration = DefaultSamplingDuration
	}
	if c.Breaker.BreakDuration == 0 {
		c.Breaker.BreakDuration = DefaultBreakDuration
	}
	if c.RateLimit > 0 && c.RateBurst == 0 {
		c.RateBurst = DefaultRateBurst
	}
	return c
}

// Pipeline is the composed policy chain around a transport. One
// configured instance is safe to share across many concurrent calls.
type Pipeline struct {
	cfg      Config
	handler  types.Handler
	shared   *breaker.Breaker
	registry *breaker.Registry
}

// Option configures pipeline construction
type Option func(*builder)

type builder struct {
	clock   types.Clock
	logger  *zerolog.Logger
	noRetry bool
}

// WithClock sets the clock for all time-driven policies
func WithClock(clock types.Clock) Option {
	return func(b *builder) {
		b.clock = clock
	}
}

// WithLogger installs zerolog-backed observers for any retry or breaker
// hook the configuration leaves unset.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *builder) {
		b.logger = &logger
	}
}

// WithoutRetry disables the retry policy regardless of configuration.
func WithoutRetry() Option {
	return func(b *builder) {
		b.noRetry = true
	}
}

// New composes the policy chain in fixed order, outermost first:
// overall-timeout, retry, rate-limit, bulkhead, circuit-breaker,
// per-attempt-timeout, transport. The relative order of the core
// policies is load-bearing: retries count against the overall budget,
// feed the breaker's window, and each get a fresh attempt deadline.
func New(cfg Config, transport types.Handler, opts ...Option) (*Pipeline, error) {
	if transport == nil {
		return nil, types.NewConfigError("transport", "must not be nil")
	}

	b := &builder{clock: types.NewRealClock()}
	for _, opt := range opts {
		opt(b)
	}

	cfg = cfg.withDefaults()
	if b.noRetry {
		cfg.Retry = retry.Settings{}
	}
	if b.logger != nil {
		installLogHooks(&cfg, *b.logger)
	}

	overall, err := timeout.New(cfg.OverallTimeout, types.ScopeOverall, timeout.WithClock(b.clock))
	if err != nil {
		return nil, err
	}
	attempt, err := timeout.New(cfg.AttemptTimeout, types.ScopeAttempt, timeout.WithClock(b.clock))
	if err != nil {
		return nil, err
	}
	retrier, err := retry.New(cfg.Retry, retry.WithClock(b.clock))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg}

	var breaking types.Middleware
	if cfg.HostSpecific {
		registry, err := breaker.NewRegistry(cfg.Breaker, breaker.WithClock(b.clock))
		if err != nil {
			return nil, err
		}
		p.registry = registry
		breaking = registry.Wrap
	} else {
		shared, err := breaker.New(cfg.Breaker, breaker.WithClock(b.clock))
		if err != nil {
			return nil, err
		}
		p.shared = shared
		breaking = shared.Wrap
	}

	var pacing, isolating types.Middleware
	if cfg.RateLimit > 0 {
		limiter, err := ratelimit.New(cfg.RateLimit, cfg.RateBurst)
		if err != nil {
			return nil, err
		}
		pacing = limiter.Wrap
	}
	if cfg.MaxConcurrent > 0 {
		hold, err := bulkhead.New(cfg.MaxConcurrent)
		if err != nil {
			return nil, err
		}
		isolating = hold.Wrap
	}

	p.handler = types.Chain(transport,
		overall.Wrap,
		retrier.Wrap,
		pacing,
		isolating,
		breaking,
		attempt.Wrap,
	)
	return p, nil
}

// Do executes a request through the policy chain.
func (p *Pipeline) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return p.handler(ctx, req)
}

// Handler exposes the composed chain for further wrapping.
func (p *Pipeline) Handler() types.Handler {
	return p.handler
}

// Config returns the effective configuration after defaults.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// BreakerFor returns the circuit instance guarding host. With a shared
// breaker the host is ignored.
func (p *Pipeline) BreakerFor(host string) *breaker.Breaker {
	if p.registry != nil {
		return p.registry.ForHost(host)
	}
	return p.shared
}
