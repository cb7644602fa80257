package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerExecuteSuccessAndFailurePassThrough(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{MaxFailures: 3, Timeout: 10 * time.Millisecond, HalfOpenMaxSuccesses: 1})
	ctx := context.Background()

	got, err := cb.Execute(ctx, func() (interface{}, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Fatalf("got %v, %v; want ok, nil", got, err)
	}

	wantErr := errors.New("boom")
	_, err = cb.Execute(ctx, func() (interface{}, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want wrapped %v", err, wantErr)
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour, HalfOpenMaxSuccesses: 1})
	ctx := context.Background()
	failing := func() (interface{}, error) { return nil, errors.New("fail") }

	cb.Execute(ctx, failing)
	cb.Execute(ctx, failing)

	if cb.State() != "open" {
		t.Fatalf("got state %q, want open after %d consecutive failures", cb.State(), 2)
	}

	_, err := cb.Execute(ctx, func() (interface{}, error) { return "should not run", nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("got %v, want ErrCircuitOpen while circuit is open", err)
	}
}

func TestCircuitBreakerMetricsTrackRequests(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx := context.Background()

	cb.Execute(ctx, func() (interface{}, error) { return "ok", nil })
	cb.Execute(ctx, func() (interface{}, error) { return nil, errors.New("fail") })

	m := cb.Metrics()
	if m.TotalRequests != 2 || m.TotalSuccesses != 1 || m.TotalFailures != 1 {
		t.Errorf("got %+v, want 2 requests, 1 success, 1 failure", m)
	}
}

func TestCircuitBreakerExecuteRespectsCanceledContext(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cb.Execute(ctx, func() (interface{}, error) { return "should not run", nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestCircuitBreakerHealthCheckRespectsTimeout(t *testing.T) {
	cb := NewCircuitBreaker()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := cb.HealthCheck(ctx, func() error {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
}
