// Package breaker implements a sliding-window failure-ratio circuit breaker
package breaker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/jzx17/resilience/pkg/types"
)

// ErrOpen is returned when a call is rejected because the circuit is
// open or isolated. The protected handler is not invoked.
var ErrOpen = errors.New("circuit breaker is open")

// State captures the circuit lifecycle.
type State int

const (
	// StateClosed indicates normal operation
	StateClosed State = iota
	// StateOpen indicates calls are rejected until the cool-down elapses
	StateOpen
	// StateHalfOpen indicates a single trial call is permitted
	StateHalfOpen
	// StateIsolated indicates the circuit was opened manually
	StateIsolated
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	case StateIsolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker
type Settings struct {
	// FailureThreshold is the failure ratio (0.0-1.0] at which the
	// circuit opens once the window holds enough samples
	FailureThreshold float64

	// MinimumThroughput is the sample count required before the
	// threshold is evaluated
	MinimumThroughput int

	// SamplingDuration is the sliding window over which the failure
	// ratio is measured
	SamplingDuration time.Duration

	// BreakDuration is the cool-down before an open circuit probes
	// recovery
	BreakDuration time.Duration

	// OnBreak fires when the circuit opens, with the failure ratio
	// that tripped it
	OnBreak func(ratio float64)

	// OnReset fires when the circuit closes again
	OnReset func()

	// OnHalfOpen fires when the cool-down elapses and a trial call is
	// permitted
	OnHalfOpen func()

	// Classifier overrides the default failure classification
	Classifier types.Classifier
}

func (s *Settings) validate() error {
	if s.FailureThreshold <= 0 || s.FailureThreshold > 1 {
		return types.NewConfigError("breaker.failureThreshold", "must be in (0.0, 1.0]")
	}
	if s.MinimumThroughput < 1 {
		return types.NewConfigError("breaker.minimumThroughput", "must be at least 1")
	}
	if s.SamplingDuration <= 0 {
		return types.NewConfigError("breaker.samplingDuration", "must be positive")
	}
	if s.BreakDuration <= 0 {
		return types.NewConfigError("breaker.breakDuration", "must be positive")
	}
	return nil
}

type sample struct {
	at      time.Time
	failure bool
}

// Breaker tracks the failure ratio of outcomes over a sliding time
// window and fails fast while a struggling destination recovers. Safe
// for concurrent use; state transitions are mutex-guarded.
type Breaker struct {
	settings Settings
	classify types.Classifier
	clock    types.Clock

	mu       sync.Mutex
	state    State
	openedAt time.Time
	trialing bool
	window   []sample
}

// Option configures a Breaker
type Option func(*Breaker)

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) Option {
	return func(b *Breaker) {
		b.clock = clock
	}
}

// New creates a circuit breaker from settings
func New(settings Settings, opts ...Option) (*Breaker, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return newBreaker(settings, opts...), nil
}

// newBreaker assumes settings were already validated.
func newBreaker(settings Settings, opts ...Option) *Breaker {
	b := &Breaker{
		settings: settings,
		classify: settings.Classifier,
		clock:    types.NewRealClock(),
		state:    StateClosed,
	}
	if b.classify == nil {
		b.classify = types.IsFailure
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Wrap returns a handler guarded by this circuit instance.
func (b *Breaker) Wrap(next types.Handler) types.Handler {
	return func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return b.do(ctx, req, next)
	}
}

func (b *Breaker) do(ctx context.Context, req *http.Request, next types.Handler) (*http.Response, error) {
	trial, err := b.allow()
	if err != nil {
		return nil, err
	}

	resp, callErr := next(ctx, req)
	b.record(trial, b.classify(resp, callErr))
	return resp, callErr
}

// State returns the effective state, accounting for an elapsed
// cool-down that has not yet been observed by a call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.clock.Since(b.openedAt) >= b.settings.BreakDuration {
		return StateHalfOpen
	}
	return b.state
}

// Isolate opens the circuit manually until Reset is called.
func (b *Breaker) Isolate() {
	b.mu.Lock()
	b.state = StateIsolated
	b.trialing = false
	b.mu.Unlock()
}

// Reset closes the circuit and clears the sampling window.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.state = StateClosed
	b.trialing = false
	b.window = b.window[:0]
	b.mu.Unlock()

	b.fire(b.settings.OnReset)
}

// allow decides whether a call may proceed. It reports whether this
// call is the half-open trial.
func (b *Breaker) allow() (bool, error) {
	var halfOpened bool

	b.mu.Lock()
	switch b.state {
	case StateIsolated:
		b.mu.Unlock()
		return false, ErrOpen

	case StateOpen:
		if b.clock.Since(b.openedAt) < b.settings.BreakDuration {
			b.mu.Unlock()
			return false, ErrOpen
		}
		b.state = StateHalfOpen
		b.trialing = true
		halfOpened = true

	case StateHalfOpen:
		if b.trialing {
			b.mu.Unlock()
			return false, ErrOpen
		}
		b.trialing = true

	case StateClosed:
	}
	trial := b.state == StateHalfOpen
	b.mu.Unlock()

	if halfOpened {
		b.fire(b.settings.OnHalfOpen)
	}
	return trial, nil
}

// record feeds an outcome back into the state machine. Rejected calls
// never reach here, so they do not distort the window.
func (b *Breaker) record(trial, failure bool) {
	var (
		broke bool
		ratio float64
		reset bool
	)

	b.mu.Lock()
	switch {
	case b.state == StateIsolated:
		// manual isolation wins over any in-flight outcome

	case trial:
		if b.state != StateHalfOpen {
			break
		}
		b.trialing = false
		if failure {
			b.state = StateOpen
			b.openedAt = b.clock.Now()
			broke, ratio = true, 1
		} else {
			b.state = StateClosed
			b.window = b.window[:0]
			reset = true
		}

	case b.state == StateClosed:
		now := b.clock.Now()
		b.window = append(b.window, sample{at: now, failure: failure})
		b.prune(now)

		total, failures := len(b.window), 0
		for _, s := range b.window {
			if s.failure {
				failures++
			}
		}
		if total >= b.settings.MinimumThroughput {
			r := float64(failures) / float64(total)
			if r >= b.settings.FailureThreshold {
				b.state = StateOpen
				b.openedAt = now
				broke, ratio = true, r
			}
		}
	}
	b.mu.Unlock()

	if broke {
		b.fireBreak(ratio)
	}
	if reset {
		b.fire(b.settings.OnReset)
	}
}

// prune drops samples older than the sliding window.
func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.settings.SamplingDuration)
	kept := b.window[:0]
	for _, s := range b.window {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	b.window = kept
}

func (b *Breaker) fire(hook func()) {
	if hook == nil {
		return
	}
	defer func() {
		// observer panics must not reach the pipeline
		_ = recover()
	}()
	hook()
}

func (b *Breaker) fireBreak(ratio float64) {
	if b.settings.OnBreak == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	b.settings.OnBreak(ratio)
}
