package translate

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrRunning is returned by Start while a previous run is in progress.
	ErrRunning = errors.New("translation already running")
	// ErrNotStarted is returned by Wait before any run was started.
	ErrNotStarted = errors.New("translation not started")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("engine closed")
)

// Engine runs an Orchestrator on a background goroutine for callers that
// are not structured around a context, such as a CLI or GUI event loop.
type Engine[K comparable] struct {
	orch *Orchestrator[K]

	mu      sync.Mutex
	closed  bool
	signal  *Signal
	abort   context.CancelFunc
	done    chan struct{}
	results *Results[K]
	err     error
}

// NewEngine wraps orch.
func NewEngine[K comparable](orch *Orchestrator[K]) *Engine[K] {
	return &Engine[K]{orch: orch}
}

// Start begins translating units in the background and returns at once.
func (e *Engine[K]) Start(units []Unit[K], progress ProgressFunc[K]) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.runningLocked() {
		return ErrRunning
	}

	ctx, abort := context.WithCancel(context.Background())
	signal := NewSignal()
	done := make(chan struct{})

	e.signal = signal
	e.abort = abort
	e.done = done
	e.results = nil
	e.err = nil

	go func() {
		defer close(done)
		defer abort()
		results, err := e.orch.Run(ctx, units, progress, signal)
		e.mu.Lock()
		e.results, e.err = results, err
		e.mu.Unlock()
	}()
	return nil
}

// Cancel stops admission of new units. Units already translating finish
// and are recorded. Safe to call any number of times.
func (e *Engine[K]) Cancel() {
	e.mu.Lock()
	signal := e.signal
	e.mu.Unlock()
	if signal != nil {
		signal.Set()
	}
}

// Abort cancels the run and interrupts in-flight requests.
func (e *Engine[K]) Abort() {
	e.mu.Lock()
	signal, abort := e.signal, e.abort
	e.mu.Unlock()
	if signal != nil {
		signal.Set()
	}
	if abort != nil {
		abort()
	}
}

// Running reports whether a run is in progress.
func (e *Engine[K]) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runningLocked()
}

func (e *Engine[K]) runningLocked() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current run finishes and returns its results.
func (e *Engine[K]) Wait() (*Results[K], error) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return nil, ErrNotStarted
	}

	<-done

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.results, e.err
}

// Translate runs units to completion.
func (e *Engine[K]) Translate(units []Unit[K], progress ProgressFunc[K]) (*Results[K], error) {
	if err := e.Start(units, progress); err != nil {
		return nil, err
	}
	return e.Wait()
}

// TranslateText translates a single text, blocking until done.
func (e *Engine[K]) TranslateText(ctx context.Context, text string) (string, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return "", ErrClosed
	}
	return e.orch.TranslateText(ctx, text)
}

// Close cancels any run in progress, waits for it to stop and rejects
// further runs.
func (e *Engine[K]) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	signal, done := e.signal, e.done
	e.mu.Unlock()

	if signal != nil {
		signal.Set()
	}
	if done != nil {
		<-done
	}
	return nil
}
