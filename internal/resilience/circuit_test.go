package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func transientFail(_ context.Context) (int, error) {
	return 0, NewTransientError(errors.New("down"), 503)
}

func TestCircuitBreaker_DisabledIsNil(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb != nil {
		t.Fatal("expected nil breaker for zero threshold")
	}
	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("nil breaker should pass through, got %d %v", v, err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("nil breaker should report closed")
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	for i := 0; i < 3; i++ {
		_, _ = ExecuteVal(context.Background(), cb, transientFail)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	_, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
		t.Error("should not be called while open")
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	for i := 0; i < 5; i++ {
		_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
			return 0, errors.New("404")
		})
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.nowFunc = func() time.Time { return now }

	var transitions []CircuitState
	cb.cfg.OnStateChange = func(_, to CircuitState) { transitions = append(transitions, to) }

	_, _ = ExecuteVal(context.Background(), cb, transientFail)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	now = now.Add(2 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open after reset window, got %s", cb.State())
	}

	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 1, nil })
	if err != nil || v != 1 {
		t.Fatalf("probe should succeed, got %d %v", v, err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
	want := []CircuitState{CircuitOpen, CircuitHalfOpen, CircuitClosed}
	if len(transitions) != len(want) {
		t.Fatalf("unexpected transitions %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	cb.nowFunc = func() time.Time { return now }

	_, _ = ExecuteVal(context.Background(), cb, transientFail)
	now = now.Add(2 * time.Second)
	_, _ = ExecuteVal(context.Background(), cb, transientFail)

	if cb.State() != CircuitOpen {
		t.Errorf("expected open after failed probe, got %s", cb.State())
	}
}

func TestCircuitState_String(t *testing.T) {
	if CircuitClosed.String() != "closed" || CircuitOpen.String() != "open" ||
		CircuitHalfOpen.String() != "half-open" || CircuitState(9).String() != "unknown" {
		t.Error("unexpected state strings")
	}
}
