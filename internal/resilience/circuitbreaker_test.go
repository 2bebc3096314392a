package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerClosedPassesThrough(t *testing.T) {
	t.Parallel()

	cb := New(Config{Name: "test"})

	calls := 0
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if got := cb.State(); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb := New(Config{Name: "test", MaxFailures: 3, ResetTimeout: time.Hour})
	failErr := errors.New("backend down")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), func(ctx context.Context) error {
			return failErr
		}); !errors.Is(err, failErr) {
			t.Fatalf("Execute() #%d error = %v, want %v", i, err, failErr)
		}
	}

	if got := cb.State(); got != StateOpen {
		t.Fatalf("State() = %v, want %v", got, StateOpen)
	}

	// Further calls are rejected without invoking fn.
	calls := 0
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("fn called %d times while open, want 0", calls)
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb := New(Config{Name: "test", MaxFailures: 3})
	failErr := errors.New("flaky")

	// Two failures, one success, two more failures: never reaches three
	// consecutive, so the breaker stays closed.
	for _, fail := range []bool{true, true, false, true, true} {
		fail := fail
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			if fail {
				return failErr
			}
			return nil
		})
	}

	if got := cb.State(); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	t.Parallel()

	cb := New(Config{Name: "test", MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMax: 2})

	if err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	}); err == nil {
		t.Fatal("Execute() error = nil, want failure")
	}
	if got := cb.State(); got != StateOpen {
		t.Fatalf("State() = %v, want %v", got, StateOpen)
	}

	time.Sleep(20 * time.Millisecond)

	if got := cb.State(); got != StateHalfOpen {
		t.Fatalf("State() after reset timeout = %v, want %v", got, StateHalfOpen)
	}

	// Two successful probes close the breaker.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(context.Background(), func(ctx context.Context) error {
			return nil
		}); err != nil {
			t.Fatalf("probe #%d error = %v, want nil", i, err)
		}
	}

	if got := cb.State(); got != StateClosed {
		t.Errorf("State() = %v, want %v", got, StateClosed)
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	cb := New(Config{Name: "test", MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMax: 2})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})
	time.Sleep(20 * time.Millisecond)

	// First probe fails: breaker re-opens immediately.
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("still down")
	})

	calls := 0
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
	if calls != 0 {
		t.Errorf("fn called %d times, want 0", calls)
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	t.Parallel()

	cb := New(Config{Name: "test", MaxFailures: 1, ResetTimeout: time.Hour})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})
	if got := cb.State(); got != StateOpen {
		t.Fatalf("State() = %v, want %v", got, StateOpen)
	}

	cb.Reset()

	if got := cb.State(); got != StateClosed {
		t.Errorf("State() after Reset = %v, want %v", got, StateClosed)
	}
	if err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Errorf("Execute() after Reset error = %v, want nil", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
