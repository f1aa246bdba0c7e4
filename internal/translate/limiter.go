package translate

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of requests in flight. Waiters are admitted in
// FIFO order.
type Limiter struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
	peak     atomic.Int64
}

// Permit is a held slot. Release is safe to call more than once.
type Permit struct {
	l    *Limiter
	once sync.Once
}

// NewLimiter creates a limiter with n permits (minimum 1).
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{
		sem:  semaphore.NewWeighted(int64(n)),
		size: n,
	}
}

// Acquire blocks until a permit is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) (*Permit, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	l.admitted()
	return &Permit{l: l}, nil
}

// TryAcquire takes a permit only if one is immediately available.
func (l *Limiter) TryAcquire() (*Permit, bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}
	l.admitted()
	return &Permit{l: l}, true
}

func (l *Limiter) admitted() {
	current := l.inFlight.Add(1)
	for {
		peak := l.peak.Load()
		if current <= peak || l.peak.CompareAndSwap(peak, current) {
			return
		}
	}
}

// Release returns the permit to the limiter.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		p.l.inFlight.Add(-1)
		p.l.sem.Release(1)
	})
}

// Size returns the total number of permits.
func (l *Limiter) Size() int { return l.size }

// InFlight returns the number of permits currently held.
func (l *Limiter) InFlight() int { return int(l.inFlight.Load()) }

// Peak returns the highest number of permits held at once.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }
