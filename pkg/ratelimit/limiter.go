package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for request pacing
type Limiter interface {
	// Allow reports whether a request could proceed right now without
	// waiting
	Allow() bool
	// Wait blocks until the pacing interval has elapsed, then records
	// the request
	Wait()
	// Reset clears the limiter state
	Reset()
}

// FixedInterval enforces a fixed minimum spacing between requests. The
// delay is unconditional: there is no burst allowance and no backoff,
// which keeps the request pattern flat enough to stay under anti-abuse
// throttling.
type FixedInterval struct {
	interval time.Duration
	last     time.Time
	mu       sync.Mutex
}

// NewFixedInterval creates a limiter that spaces requests at least
// interval apart
func NewFixedInterval(interval time.Duration) *FixedInterval {
	return &FixedInterval{
		interval: interval,
	}
}

// Allow reports whether the interval has elapsed since the last request.
// It does not record a request.
func (f *FixedInterval) Allow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.last.IsZero() || time.Since(f.last) >= f.interval
}

// Wait sleeps out the remainder of the interval, then records the
// request. The first call never blocks.
func (f *FixedInterval) Wait() {
	f.mu.Lock()
	remaining := time.Duration(0)
	if !f.last.IsZero() {
		remaining = f.interval - time.Since(f.last)
	}
	f.mu.Unlock()

	if remaining > 0 {
		time.Sleep(remaining)
	}

	f.mu.Lock()
	f.last = time.Now()
	f.mu.Unlock()
}

// Reset clears the last-request timestamp so the next Wait is immediate
func (f *FixedInterval) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = time.Time{}
}
