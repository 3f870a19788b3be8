// Package pipeline composes resilience policies for outbound HTTP calls into a single handler chain.
//
// The chain is assembled in fixed order, outermost first:
//
//  1. Overall timeout: bounds total wall-clock cost including all waits and retries
//  2. Retry: repeats qualifying failures with backoff or server-hinted waits
//  3. Rate limit (optional): paces the sustained call rate
//  4. Bulkhead (optional): bounds concurrent executions
//  5. Circuit breaker: fails fast while a destination recovers, optionally per host
//  6. Per-attempt timeout: gives every retry a fresh deadline
//  7. Transport: the underlying exchange
//
// This ordering is load-bearing. Retry sits inside the overall timeout
// so retries count against the overall budget, outside the breaker so
// repeated failures feed the breaker's window and an open breaker
// short-circuits remaining retries cheaply, and outside the per-attempt
// timeout so each retry gets a fresh deadline. A fast-failed attempt
// against an open circuit still consumes a retry slot; the wait before
// the next slot is what gives the breaker room to half-open.
//
// Basic usage:
//
//	p, err := pipeline.New(pipeline.Config{
//		OverallTimeout: 30 * time.Second,
//		AttemptTimeout: 5 * time.Second,
//		Retry: retry.Settings{
//			Count: 3,
//			Delay: delayFn,
//		},
//		HostSpecific: true,
//	}, types.TransportHandler(http.DefaultTransport))
//
//	resp, err := p.Do(ctx, req)
//
// Or as an http.Client transport:
//
//	rt, err := pipeline.NewTransport(pipeline.Config{}, nil)
//	client := &http.Client{Transport: rt}
//
// Fields left at their zero value take the package's named Default*
// constants.
package pipeline
