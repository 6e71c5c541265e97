package chain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first attempt", 0, 500 * time.Millisecond},
		{"second attempt", 1, time.Second},
		{"third attempt", 2, 2 * time.Second},
		{"capped", 10, 30 * time.Second},
		{"huge attempt stays capped", 63, 30 * time.Second},
		{"negative gets base", -1, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Backoff(tt.attempt); got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, nil, func() error {
		calls++
		if calls < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	rejected := errors.New("execution reverted")
	calls := 0
	err := Retry(context.Background(), 5, func(err error) bool { return errors.Is(err, rejected) }, func() error {
		calls++
		return rejected
	})
	if !errors.Is(err, rejected) {
		t.Fatalf("Retry error = %v, want %v", err, rejected)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, nil, func() error {
		calls++
		return errors.New("timeout")
	})
	if err == nil {
		t.Fatal("Retry returned nil, want the last error")
	}
	if calls != 2 {
		t.Errorf("op called %d times, want 2", calls)
	}
}

func TestRetryHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, 3, nil, func() error {
		calls++
		return errors.New("timeout")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry error = %v, want %v", err, context.Canceled)
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1", calls)
	}
}
