package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgallion1/legistruct/internal/storage"
)

func noWait(int) time.Duration { return 0 }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"retryable", &storage.RetryableError{Op: "put", Err: errors.New("slow down")}, true},
		{"wrapped", fmt.Errorf("write: %w", &storage.RetryableError{Op: "put", Err: errors.New("503")}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	for attempt := range 8 {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: expected [%s, %s), got %s", attempt, base, base+base/2, d)
		}
	}
}

func TestWithRetry(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	retryable := &storage.RetryableError{Op: "put", Err: errors.New("throttled")}

	tests := []struct {
		name     string
		failures int
		err      error
		wantErr  bool
		wantRuns int
	}{
		{"success", 0, nil, false, 1},
		{"recovers", 2, retryable, false, 3},
		{"exhausted", 5, retryable, true, MaxRetries},
		{"permanent", 5, errors.New("denied"), true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := 0
			err := withRetry(context.Background(), log, "test", noWait, func() error {
				runs++
				if runs <= tt.failures {
					return tt.err
				}
				return nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if runs != tt.wantRuns {
				t.Errorf("expected %d runs, got %d", tt.wantRuns, runs)
			}
		})
	}
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runs := 0
	err := withRetry(ctx, slog.New(slog.DiscardHandler), "test", func(int) time.Duration { return time.Hour }, func() error {
		runs++
		return &storage.RetryableError{Op: "put", Err: errors.New("throttled")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runs != 1 {
		t.Errorf("expected 1 run, got %d", runs)
	}
}
