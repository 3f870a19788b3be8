// Package backoff provides bounded retry delay generation strategies
package backoff

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jzx17/resilience/pkg/types"
)

// Strategy selects how successive retry delays grow.
type Strategy int

const (
	// Constant repeats the initial delay for every attempt
	Constant Strategy = iota
	// Linear grows the delay by the initial delay each attempt
	Linear
	// Exponential doubles the delay each attempt
	Exponential
	// Jitter applies decorrelated jitter around exponential growth to
	// avoid synchronized retry storms across many clients
	Jitter
)

// String returns the string representation of a Strategy
func (s Strategy) String() string {
	switch s {
	case Constant:
		return "constant"
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	case Jitter:
		return "jitter"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a strategy name to a Strategy
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "constant":
		return Constant, nil
	case "linear":
		return Linear, nil
	case "exponential":
		return Exponential, nil
	case "jitter":
		return Jitter, nil
	default:
		return 0, types.NewConfigError("strategy", fmt.Sprintf("unknown backoff strategy %q", name))
	}
}

// DelayFunc computes the wait before retry number attempt (1-based).
type DelayFunc func(attempt int) time.Duration

// Option configures delay generation
type Option func(*settings)

type settings struct {
	rnd *rand.Rand
	cap time.Duration
}

// WithRand sets the random source used by the Jitter strategy, making
// generated sequences reproducible in tests.
func WithRand(rnd *rand.Rand) Option {
	return func(s *settings) {
		s.rnd = rnd
	}
}

// WithCap bounds every generated delay from above.
func WithCap(cap time.Duration) Option {
	return func(s *settings) {
		s.cap = cap
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Sequence generates exactly count delays for the given strategy.
// Constant, Linear and Exponential sequences are deterministic for the
// same inputs; Jitter draws from the configured random source.
func Sequence(strategy Strategy, count int, delay time.Duration, opts ...Option) ([]time.Duration, error) {
	fn, err := Func(strategy, delay, opts...)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, types.NewConfigError("count", "must not be negative")
	}

	seq := make([]time.Duration, count)
	for i := range seq {
		seq[i] = fn(i + 1)
	}
	return seq, nil
}

// Func returns a DelayFunc for the given strategy. The returned
// function is safe for concurrent use.
func Func(strategy Strategy, delay time.Duration, opts ...Option) (DelayFunc, error) {
	if delay < 0 {
		return nil, types.NewConfigError("delay", "must not be negative")
	}

	s := newSettings(opts)

	switch strategy {
	case Constant:
		return func(attempt int) time.Duration {
			return s.clamp(delay)
		}, nil
	case Linear:
		return func(attempt int) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			return s.clamp(delay * time.Duration(attempt))
		}, nil
	case Exponential:
		return func(attempt int) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			d := delay << uint(attempt-1)
			if d < 0 || (delay > 0 && d < delay) {
				// shifted past the representable range
				d = maxDuration
			}
			return s.clamp(d)
		}, nil
	case Jitter:
		return decorrelated(delay, s), nil
	default:
		return nil, types.NewConfigError("strategy", fmt.Sprintf("unknown backoff strategy %d", strategy))
	}
}

// FromSequence adapts a precomputed sequence to a DelayFunc. Attempts
// past the end of the sequence reuse the last entry.
func FromSequence(seq []time.Duration) DelayFunc {
	return func(attempt int) time.Duration {
		if len(seq) == 0 {
			return 0
		}
		if attempt < 1 {
			attempt = 1
		}
		if attempt > len(seq) {
			attempt = len(seq)
		}
		return seq[attempt-1]
	}
}

const maxDuration = time.Duration(1<<63 - 1)

func (s *settings) clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if s.cap > 0 && d > s.cap {
		return s.cap
	}
	return d
}

// decorrelated implements AWS-style decorrelated jitter: each delay is
// drawn uniformly from [base, prev*3], so the expected value converges
// toward exponential growth with randomized spread. The previous delay
// is shared state, hence the mutex.
func decorrelated(base time.Duration, s *settings) DelayFunc {
	var mu sync.Mutex
	prev := base

	return func(attempt int) time.Duration {
		mu.Lock()
		defer mu.Unlock()

		ceil := prev * 3
		if s.cap > 0 && ceil > s.cap {
			ceil = s.cap
		}
		if ceil <= base {
			prev = base
			return base
		}

		d := base + time.Duration(s.rnd.Int63n(int64(ceil-base)))
		prev = d
		return d
	}
}
