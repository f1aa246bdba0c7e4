package translate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSignal(t *testing.T) {
	t.Run("set is idempotent", func(t *testing.T) {
		s := NewSignal()
		if s.IsSet() {
			t.Fatal("new signal should be unset")
		}
		s.Set()
		s.Set()
		if !s.IsSet() {
			t.Fatal("signal should be set")
		}
		select {
		case <-s.Done():
		default:
			t.Error("Done should be closed after Set")
		}
	})

	t.Run("zero value is usable", func(t *testing.T) {
		var s Signal
		if s.IsSet() {
			t.Fatal("zero signal should be unset")
		}
		s.Set()
		if !s.IsSet() {
			t.Fatal("signal should be set")
		}
	})

	t.Run("concurrent set", func(t *testing.T) {
		s := NewSignal()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Set()
				_ = s.IsSet()
			}()
		}
		wg.Wait()
		if !s.IsSet() {
			t.Fatal("signal should be set")
		}
	})

	t.Run("context is cancelled on set", func(t *testing.T) {
		s := NewSignal()
		ctx, cancel := s.Context(context.Background())
		defer cancel()

		s.Set()
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context not cancelled after Set")
		}
	})

	t.Run("context follows parent", func(t *testing.T) {
		s := NewSignal()
		parent, cancelParent := context.WithCancel(context.Background())
		ctx, cancel := s.Context(parent)
		defer cancel()

		cancelParent()
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context not cancelled with parent")
		}
		if s.IsSet() {
			t.Error("parent cancellation must not set the signal")
		}
	})
}
