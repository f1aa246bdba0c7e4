package translate

import (
	"context"
	"sync"
	"sync/atomic"
)

// Signal is a one-way cancellation flag. It starts unset and, once set,
// stays set. The zero value is ready to use.
type Signal struct {
	initOnce sync.Once
	setOnce  sync.Once
	done     chan struct{}
	set      atomic.Bool
}

// NewSignal creates an unset signal.
func NewSignal() *Signal {
	s := &Signal{}
	s.init()
	return s
}

func (s *Signal) init() {
	s.initOnce.Do(func() {
		s.done = make(chan struct{})
	})
}

// Set marks the signal. Calling it more than once has no further effect.
func (s *Signal) Set() {
	s.init()
	s.setOnce.Do(func() {
		s.set.Store(true)
		close(s.done)
	})
}

// IsSet reports whether Set has been called.
func (s *Signal) IsSet() bool {
	return s.set.Load()
}

// Done returns a channel that is closed when the signal is set.
func (s *Signal) Done() <-chan struct{} {
	s.init()
	return s.done
}

// Context returns a child of parent that is cancelled when the signal is
// set. The returned CancelFunc must be called to release resources.
func (s *Signal) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	done := s.Done()
	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
