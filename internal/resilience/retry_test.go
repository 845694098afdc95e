package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		Multiplier:     2.0,
		MaxBackoff:     10 * time.Millisecond,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := fastPolicy(2).Do(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SingleRetryThenSuccess(t *testing.T) {
	var calls int
	err := fastPolicy(2).Do(context.Background(), func(_ context.Context) error {
		calls++
		if calls == 1 {
			return NewTransientError(errors.New("busy"), 429)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	err := fastPolicy(2).Do(context.Background(), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("down"), 503)
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	err := fastPolicy(3).Do(context.Background(), func(_ context.Context) error {
		calls++
		return errors.New("404 not found")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(5)
	p.InitialBackoff = 50 * time.Millisecond

	var calls int
	err := p.Do(ctx, func(_ context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancel, got %d", calls)
	}
}

func TestDo_AttemptTimeoutIsRetried(t *testing.T) {
	p := fastPolicy(2)
	p.AttemptTimeout = 10 * time.Millisecond

	var calls int
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_CustomRetryable(t *testing.T) {
	p := fastPolicy(3)
	p.Retryable = func(err error) bool { return err.Error() == "again" }

	var calls int
	_ = p.Do(context.Background(), func(_ context.Context) error {
		calls++
		return errors.New("again")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_OnRetryCalled(t *testing.T) {
	p := fastPolicy(3)
	var attempts []int
	p.OnRetry = func(attempt int, _ error) { attempts = append(attempts, attempt) }

	_ = p.Do(context.Background(), func(_ context.Context) error {
		return NewTransientError(errors.New("x"), 500)
	})
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("unexpected retry callbacks: %v", attempts)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	v, err := DoVal(context.Background(), fastPolicy(2), func(_ context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, NewTransientError(errors.New("x"), 502)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestBackoff_Doubles(t *testing.T) {
	p := DefaultPolicy()
	want := []time.Duration{400 * time.Millisecond, 800 * time.Millisecond, 1600 * time.Millisecond}
	for i, w := range want {
		if got := p.Backoff(i); got != w {
			t.Errorf("attempt %d: expected %s, got %s", i, w, got)
		}
	}
}

func TestBackoff_Capped(t *testing.T) {
	p := Policy{InitialBackoff: time.Second, Multiplier: 10, MaxBackoff: 3 * time.Second}
	if got := p.Backoff(4); got != 3*time.Second {
		t.Errorf("expected cap of 3s, got %s", got)
	}
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(1, 400, 8)
	if p.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", p.MaxAttempts)
	}
	if p.InitialBackoff != 400*time.Millisecond {
		t.Errorf("unexpected backoff %s", p.InitialBackoff)
	}
	if p.AttemptTimeout != 8*time.Second {
		t.Errorf("unexpected timeout %s", p.AttemptTimeout)
	}

	p = FromConfig(0, 0, 0)
	if p.MaxAttempts != 1 {
		t.Errorf("expected retries=0 to mean one attempt, got %d", p.MaxAttempts)
	}
}
