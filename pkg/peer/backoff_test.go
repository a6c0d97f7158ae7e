package peer

import (
	"testing"
	"time"
)

type fixedRandomSource float64

func (f fixedRandomSource) Float64() float64 { return float64(f) }

func TestBackoffCalculatorGrowsExponentially(t *testing.T) {
	params := BackoffParams{Initial: time.Second, Factor: 2.0, Max: 30 * time.Second, MaxAttempts: 5}
	calc := NewBackoffCalculator(params, fixedRandomSource(0))

	got := calc.CalculateMin(0)
	if got != time.Second {
		t.Fatalf("attempt 0: got %v, want %v", got, time.Second)
	}
	got = calc.CalculateMin(1)
	if got != 2*time.Second {
		t.Fatalf("attempt 1: got %v, want %v", got, 2*time.Second)
	}
	got = calc.CalculateMin(2)
	if got != 4*time.Second {
		t.Fatalf("attempt 2: got %v, want %v", got, 4*time.Second)
	}
}

func TestBackoffCalculatorCapsAtMax(t *testing.T) {
	params := BackoffParams{Initial: time.Second, Factor: 2.0, Max: 5 * time.Second, MaxAttempts: 10}
	calc := NewBackoffCalculator(params, fixedRandomSource(0))

	got := calc.CalculateMin(10)
	if got != 5*time.Second {
		t.Fatalf("got %v, want capped %v", got, 5*time.Second)
	}
}

func TestBackoffCalculatorAppliesJitter(t *testing.T) {
	params := BackoffParams{Initial: time.Second, Factor: 1.0, Max: time.Minute, MaxAttempts: 5, Jitter: 0.5}
	calc := NewBackoffCalculator(params, fixedRandomSource(1))

	got := calc.Calculate(0)
	want := time.Second + 500*time.Millisecond
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBackoffCalculatorMinMaxBound(t *testing.T) {
	params := DefaultBackoffParams()
	calc := NewBackoffCalculator(params, nil)
	for attempt := 0; attempt < params.MaxAttempts; attempt++ {
		min := calc.CalculateMin(attempt)
		max := calc.CalculateMax(attempt)
		got := calc.Calculate(attempt)
		if got < min || got > max {
			t.Fatalf("attempt %d: Calculate()=%v outside [%v, %v]", attempt, got, min, max)
		}
	}
}

func TestDefaultBackoffParamsMatchSpecSchedule(t *testing.T) {
	params := DefaultBackoffParams()
	if params.Initial != time.Second {
		t.Errorf("Initial: got %v, want 1s", params.Initial)
	}
	if params.Factor != 2.0 {
		t.Errorf("Factor: got %v, want 2.0", params.Factor)
	}
	if params.Max != 30*time.Second {
		t.Errorf("Max: got %v, want 30s", params.Max)
	}
	if params.MaxAttempts != 5 {
		t.Errorf("MaxAttempts: got %d, want 5", params.MaxAttempts)
	}
}
