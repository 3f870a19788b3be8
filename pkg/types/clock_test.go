package types

import (
	"context"
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	clock := NewRealClock()

	before := time.Now()
	now := clock.Now()
	if now.Before(before) {
		t.Error("Now went backwards")
	}

	if clock.Since(now.Add(-time.Second)) < time.Second {
		t.Error("Since returned less than the elapsed duration")
	}

	timer := clock.NewTimer(time.Millisecond)
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	timer.Stop()
}

func TestClockFromContext(t *testing.T) {
	if ClockFromContext(context.Background()) == nil {
		t.Fatal("expected a fallback clock")
	}

	clock := NewRealClock()
	ctx := WithClock(context.Background(), clock)
	if ClockFromContext(ctx) != clock {
		t.Error("context did not carry the installed clock")
	}
}
