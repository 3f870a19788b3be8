package backoff

import (
	"math/rand"
	"testing"
	"time"

	"github.com/jzx17/resilience/pkg/types"
)

func TestSequence_Constant(t *testing.T) {
	seq, err := Sequence(Constant, 4, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(seq) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(seq))
	}
	for i, d := range seq {
		if d != 10*time.Millisecond {
			t.Errorf("Entry %d: expected 10ms, got %v", i, d)
		}
	}
}

func TestSequence_Linear(t *testing.T) {
	seq, err := Sequence(Linear, 3, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("Entry %d: expected %v, got %v", i, want[i], seq[i])
		}
	}
}

func TestSequence_Exponential(t *testing.T) {
	seq, err := Sequence(Exponential, 4, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("Entry %d: expected %v, got %v", i, want[i], seq[i])
		}
	}
}

func TestSequence_ExponentialCapped(t *testing.T) {
	seq, err := Sequence(Exponential, 6, 10*time.Millisecond, WithCap(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for i, d := range seq {
		if d > 50*time.Millisecond {
			t.Errorf("Entry %d exceeds cap: %v", i, d)
		}
	}
	if seq[5] != 50*time.Millisecond {
		t.Errorf("Expected last entry clamped to 50ms, got %v", seq[5])
	}
}

func TestSequence_JitterBounds(t *testing.T) {
	base := 10 * time.Millisecond
	cap := 500 * time.Millisecond
	seq, err := Sequence(Jitter, 10, base, WithRand(rand.New(rand.NewSource(1))), WithCap(cap))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for i, d := range seq {
		if d < base {
			t.Errorf("Entry %d below base: %v", i, d)
		}
		if d > cap {
			t.Errorf("Entry %d above cap: %v", i, d)
		}
	}
}

func TestSequence_JitterReproducible(t *testing.T) {
	first, err := Sequence(Jitter, 5, 10*time.Millisecond, WithRand(rand.New(rand.NewSource(42))))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := Sequence(Jitter, 5, 10*time.Millisecond, WithRand(rand.New(rand.NewSource(42))))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Entry %d differs across seeded runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestSequence_ZeroCount(t *testing.T) {
	seq, err := Sequence(Exponential, 0, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(seq) != 0 {
		t.Errorf("Expected empty sequence, got %d entries", len(seq))
	}
}

func TestSequence_NegativeCount(t *testing.T) {
	_, err := Sequence(Constant, -1, 10*time.Millisecond)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !types.IsConfigError(err) {
		t.Errorf("Expected ConfigError, got %T", err)
	}
}

func TestFunc_NegativeDelay(t *testing.T) {
	_, err := Func(Linear, -time.Second)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !types.IsConfigError(err) {
		t.Errorf("Expected ConfigError, got %T", err)
	}
}

func TestFunc_UnknownStrategy(t *testing.T) {
	_, err := Func(Strategy(99), time.Second)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestFromSequence(t *testing.T) {
	fn := FromSequence([]time.Duration{time.Second, 2 * time.Second})

	if d := fn(1); d != time.Second {
		t.Errorf("Expected 1s for attempt 1, got %v", d)
	}
	if d := fn(2); d != 2*time.Second {
		t.Errorf("Expected 2s for attempt 2, got %v", d)
	}
	// attempts past the end reuse the last entry
	if d := fn(5); d != 2*time.Second {
		t.Errorf("Expected 2s for attempt 5, got %v", d)
	}
	if d := FromSequence(nil)(1); d != 0 {
		t.Errorf("Expected 0 for empty sequence, got %v", d)
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"constant":    Constant,
		"linear":      Linear,
		"exponential": Exponential,
		"jitter":      Jitter,
	}
	for name, want := range cases {
		got, err := ParseStrategy(name)
		if err != nil {
			t.Fatalf("ParseStrategy(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("ParseStrategy(%q): expected %v, got %v", name, want, got)
		}
		if got.String() != name {
			t.Errorf("String(): expected %q, got %q", name, got.String())
		}
	}

	if _, err := ParseStrategy("fibonacci"); err == nil {
		t.Error("Expected error for unknown strategy name")
	}
}
