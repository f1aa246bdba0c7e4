package providers

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	t.Run("nil limiter never blocks", func(t *testing.T) {
		rl := NewRateLimiter(0)
		if rl != nil {
			t.Fatal("expected nil limiter for zero rate")
		}
		if err := rl.Wait(context.Background()); err != nil {
			t.Errorf("Wait() error = %v", err)
		}
		rl.Record429(time.Second)
		if rl.Status().TokensLimit != 0 {
			t.Error("expected zero status for nil limiter")
		}
	})

	t.Run("full bucket admits burst", func(t *testing.T) {
		rl := NewRateLimiter(5)
		ctx := context.Background()
		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := rl.Wait(ctx); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if time.Since(start) > 100*time.Millisecond {
			t.Errorf("burst took %v", time.Since(start))
		}
		if got := rl.Status().TotalConsumed; got != 5 {
			t.Errorf("TotalConsumed = %d, want 5", got)
		}
	})

	t.Run("empty bucket respects context", func(t *testing.T) {
		rl := NewRateLimiter(1)
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		if err := rl.Wait(ctx); err == nil {
			t.Error("expected context error while bucket is empty")
		}
	})

	t.Run("429 pauses the bucket", func(t *testing.T) {
		rl := NewRateLimiter(6000)
		rl.Record429(80 * time.Millisecond)

		start := time.Now()
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
			t.Errorf("Wait() returned after %v, expected pause", elapsed)
		}
		if rl.Status().Last429Time.IsZero() {
			t.Error("expected Last429Time to be recorded")
		}
	})
}
