// Package types defines the fault taxonomy shared by all policies
package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TimeoutScope identifies which deadline a TimeoutError belongs to.
type TimeoutScope string

const (
	// ScopeAttempt marks a single attempt exceeding its deadline
	ScopeAttempt TimeoutScope = "attempt"
	// ScopeOverall marks the whole call, retries included, exceeding its deadline
	ScopeOverall TimeoutScope = "overall"
)

// TimeoutError reports an attempt or overall deadline expiry.
type TimeoutError struct {
	// Scope is the deadline that expired
	Scope TimeoutScope

	// Limit is the configured deadline
	Limit time.Duration
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout after %v", e.Scope, e.Limit)
}

// Timeout reports this as a timeout error, matching the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// IsTimeout checks if an error is a policy-produced timeout
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsAttemptTimeout checks if an error is a per-attempt timeout, which
// still qualifies for retry accounting.
func IsAttemptTimeout(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.Scope == ScopeAttempt
	}
	return false
}

// ConfigError reports invalid policy settings detected at construction
// time. It is fatal and never silently corrected.
type ConfigError struct {
	// Field is the offending setting
	Field string

	// Reason describes the violated constraint
	Reason string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid setting %s: %s", e.Field, e.Reason)
}

// NewConfigError creates a new construction-time settings error
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// IsConfigError checks if an error is a construction-time settings error
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Classifier decides whether a completed attempt counts as a failure
// for retry and circuit breaker accounting. Exactly one of resp and err
// may describe the outcome; err takes priority when both are set.
type Classifier func(resp *http.Response, err error) bool

// IsFailure is the default outcome classification: transport-level
// faults (except caller cancellation), per-attempt timeouts, and
// transient HTTP status codes all count as failures.
func IsFailure(resp *http.Response, err error) bool {
	if err != nil {
		// a cancelled caller is not a fault of the destination
		return !errors.Is(err, context.Canceled)
	}
	if resp == nil {
		return true
	}
	return IsTransientStatus(resp.StatusCode)
}

// IsTransientStatus reports whether an HTTP status code signals a
// condition worth retrying: 5xx, 408 (request timeout) and 429 (rate
// limited, treated as a failure signal to protect upstream capacity).
func IsTransientStatus(code int) bool {
	if code >= http.StatusInternalServerError {
		return true
	}
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}
