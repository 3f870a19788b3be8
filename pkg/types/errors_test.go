package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Scope: ScopeAttempt, Limit: 5 * time.Second}

	if got, want := err.Error(), "attempt timeout after 5s"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !err.Timeout() {
		t.Error("Timeout() = false, want true")
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout = false, want true")
	}
	if !IsAttemptTimeout(err) {
		t.Error("IsAttemptTimeout = false, want true")
	}

	overall := &TimeoutError{Scope: ScopeOverall, Limit: time.Minute}
	if !IsTimeout(overall) {
		t.Error("IsTimeout(overall) = false, want true")
	}
	if IsAttemptTimeout(overall) {
		t.Error("IsAttemptTimeout(overall) = true, want false")
	}
}

func TestIsTimeout_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("request failed: %w", &TimeoutError{Scope: ScopeOverall, Limit: time.Second})
	if !IsTimeout(wrapped) {
		t.Error("IsTimeout should unwrap")
	}
	if IsTimeout(errors.New("plain")) {
		t.Error("IsTimeout(plain) = true, want false")
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("count", "must not be negative")

	if got, want := err.Error(), "invalid setting count: must not be negative"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsConfigError(err) {
		t.Error("IsConfigError = false, want true")
	}
	if !IsConfigError(fmt.Errorf("setup: %w", err)) {
		t.Error("IsConfigError should unwrap")
	}
	if IsConfigError(errors.New("plain")) {
		t.Error("IsConfigError(plain) = true, want false")
	}
}

func TestIsFailure(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
		err  error
		want bool
	}{
		{"transport error", nil, errors.New("connection refused"), true},
		{"caller cancellation", nil, context.Canceled, false},
		{"wrapped cancellation", nil, fmt.Errorf("do: %w", context.Canceled), false},
		{"attempt timeout", nil, &TimeoutError{Scope: ScopeAttempt, Limit: time.Second}, true},
		{"nil response without error", nil, nil, true},
		{"success", &http.Response{StatusCode: http.StatusOK}, nil, false},
		{"not found", &http.Response{StatusCode: http.StatusNotFound}, nil, false},
		{"server error", &http.Response{StatusCode: http.StatusBadGateway}, nil, true},
		{"request timeout", &http.Response{StatusCode: http.StatusRequestTimeout}, nil, true},
		{"rate limited", &http.Response{StatusCode: http.StatusTooManyRequests}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFailure(tt.resp, tt.err); got != tt.want {
				t.Errorf("IsFailure = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransientStatus(t *testing.T) {
	transient := []int{500, 502, 503, 599, 408, 429}
	for _, code := range transient {
		if !IsTransientStatus(code) {
			t.Errorf("IsTransientStatus(%d) = false, want true", code)
		}
	}

	stable := []int{200, 201, 301, 400, 401, 403, 404, 409, 418}
	for _, code := range stable {
		if IsTransientStatus(code) {
			t.Errorf("IsTransientStatus(%d) = true, want false", code)
		}
	}
}
