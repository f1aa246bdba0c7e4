package translate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_BoundsInFlight(t *testing.T) {
	l := NewLimiter(3)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := l.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer p.Release()
			if n := l.InFlight(); n > 3 {
				t.Errorf("in flight = %d, want <= 3", n)
			}
			time.Sleep(2 * time.Millisecond)
		}()
	}
	wg.Wait()

	if l.Peak() > 3 || l.Peak() < 1 {
		t.Errorf("Peak() = %d, want 1..3", l.Peak())
	}
	if l.InFlight() != 0 {
		t.Errorf("InFlight() = %d after all released", l.InFlight())
	}
}

func TestLimiter_AcquireRespectsContext(t *testing.T) {
	l := NewLimiter(1)
	p, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx); err == nil {
		t.Fatal("expected error while limiter is full")
	}

	p.Release()
	p.Release()
	if l.InFlight() != 0 {
		t.Errorf("double release changed accounting: in flight = %d", l.InFlight())
	}

	p2, ok := l.TryAcquire()
	if !ok {
		t.Fatal("TryAcquire() should succeed after release")
	}
	if _, ok := l.TryAcquire(); ok {
		t.Error("TryAcquire() should fail while full")
	}
	p2.Release()
}

func TestNewLimiter_Minimum(t *testing.T) {
	if got := NewLimiter(0).Size(); got != 1 {
		t.Errorf("Size() = %d, want 1", got)
	}
}
