package export

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxConcurrentExports is the slot count used when none is configured.
	DefaultMaxConcurrentExports = 4

	// DefaultMaxWaitTime is how long Acquire waits for a free slot.
	DefaultMaxWaitTime = 10 * time.Second
)

// Limiter caps how many exports hold a workspace at once. A slot is taken
// before the workspace is created and given back when the Download is
// closed, so an archive still streaming to a slow client keeps its slot.
type Limiter struct {
	max     int
	maxWait time.Duration

	mu     sync.Mutex
	active int
	freed  chan struct{} // closed and replaced on every Release
}

// NewLimiter creates a Limiter with maxConcurrent slots. Non-positive
// arguments fall back to the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Limiter{
		max:     maxConcurrent,
		maxWait: maxWait,
		freed:   make(chan struct{}),
	}
}

// Acquire takes a slot. When none is free it waits for a Release for up
// to maxWait and then returns ErrTooManyExports; if ctx ends first its
// error is returned instead. Every nil return must be paired with one
// Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		if l.active < l.max {
			l.active++
			l.mu.Unlock()
			return nil
		}
		freed := l.freed
		l.mu.Unlock()

		select {
		case <-freed:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrTooManyExports
		}
	}
}

// Release gives back a slot and wakes everything waiting on the limiter.
func (l *Limiter) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active == 0 {
		panic("export: Limiter.Release without Acquire")
	}
	l.active--
	close(l.freed)
	l.freed = make(chan struct{})
}

// ActiveCount returns the number of exports holding a slot.
func (l *Limiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return l.max - l.ActiveCount()
}

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int {
	return l.max
}

// WaitForDrain blocks until every slot is free or ctx is done. Shutdown
// calls it after the listener closes, when no new export can start.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.active == 0 {
			l.mu.Unlock()
			return nil
		}
		freed := l.freed
		l.mu.Unlock()

		select {
		case <-freed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// LimiterStatus is a snapshot of the limiter, served on /healthz.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns a consistent snapshot of the slot counts.
func (l *Limiter) Status() LimiterStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStatus{
		Active:        l.active,
		Available:     l.max - l.active,
		MaxConcurrent: l.max,
	}
}
