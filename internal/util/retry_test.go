package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetryErr(t *testing.T) {
	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := RetryErr(3, func() error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := RetryErr(3, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("returns last error", func(t *testing.T) {
		wantErr := errors.New("persistent")
		err := RetryErr(2, func() error {
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("err = %v, want %v", err, wantErr)
		}
	})

	t.Run("zero maxTries defaults to one", func(t *testing.T) {
		calls := 0
		RetryErr(0, func() error {
			calls++
			return errors.New("fail")
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestRetryWithContext(t *testing.T) {
	t.Run("canceled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := RetryWithContext(ctx, 3, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if calls != 0 {
			t.Errorf("calls = %d, want 0", calls)
		}
	})

	t.Run("context error from fn not retried", func(t *testing.T) {
		calls := 0
		_, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (int, error) {
			calls++
			return 0, context.DeadlineExceeded
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want context.DeadlineExceeded", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("returns result on success", func(t *testing.T) {
		got, err := RetryWithContext(context.Background(), 3, func(ctx context.Context) (string, error) {
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" {
			t.Errorf("got = %q, want %q", got, "ok")
		}
	})
}

func TestSanitizePostgresText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"nul\x00byte", "nulbyte"},
		{"bad\xffutf8", "badutf8"},
	}
	for _, tt := range tests {
		if got := SanitizePostgresText(tt.in); got != tt.want {
			t.Errorf("SanitizePostgresText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
