package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(maxFailures int, reset time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	cb := NewCircuitBreaker("test", maxFailures, reset)
	cb.now = clock.Now
	return cb, clock
}

var errBoom = errors.New("boom")

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)

	if cb.State() != StateClosed {
		t.Errorf("Expected initial state to be Closed, got %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Expected call to pass in Closed state, got %v", err)
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Second)

	cb.Execute(func() error { return errBoom })
	cb.Execute(func() error { return errBoom })
	if cb.State() != StateClosed {
		t.Error("Expected state to still be Closed after 2 failures")
	}

	cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Error("Expected state to be Open after 3 failures")
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected fn not to run while Open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Second)

	cb.RecordResult(false)
	cb.RecordResult(true)
	cb.RecordResult(false)
	if cb.State() != StateClosed {
		t.Error("Expected non-consecutive failures to keep the circuit Closed")
	}
}

func TestCircuitBreaker_HalfOpenThenClosed(t *testing.T) {
	cb, clock := newTestBreaker(1, 100*time.Millisecond)

	cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Fatal("Expected circuit to be Open")
	}

	clock.Advance(150 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Expected probe call to pass, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected Closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, 100*time.Millisecond)

	cb.Execute(func() error { return errBoom })
	clock.Advance(150 * time.Millisecond)

	var states []CircuitState
	cb.OnStateChange(func(name string, state CircuitState) {
		states = append(states, state)
	})

	cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Errorf("Expected Open after failed probe, got %s", cb.State())
	}
	if len(states) != 2 || states[0] != StateHalfOpen || states[1] != StateOpen {
		t.Errorf("Expected transitions [half-open open], got %v", states)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)

	cb.RecordResult(false)
	if cb.State() != StateOpen {
		t.Fatal("Expected circuit to be Open")
	}
	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("Expected Closed after Reset, got %s", cb.State())
	}
}
