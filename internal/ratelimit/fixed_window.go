// Package ratelimit implements a process-local fixed-window admission counter.
package ratelimit

import (
	"sync"
	"time"
)

// Result reports the outcome of a single admission check.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterMs returns the retry delay in whole milliseconds, rounded up.
func (r Result) RetryAfterMs() int64 {
	if r.RetryAfter <= 0 {
		return 0
	}
	return int64((r.RetryAfter + time.Millisecond - 1) / time.Millisecond)
}

type bucket struct {
	count   int
	resetAt time.Time
}

// FixedWindow counts attempts per key and resets each counter wholesale once its window ends.
// Bursts of up to 2x the limit across a window boundary are accepted.
type FixedWindow struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) {
		if now != nil {
			f.now = now
		}
	}
}

// New returns an empty limiter using the wall clock unless WithClock is given.
func New(opts ...Option) *FixedWindow {
	f := &FixedWindow{
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check records one attempt for key and reports whether it is admitted.
// Rejected attempts still count against the window.
func (f *FixedWindow) Check(key string, limit int, window time.Duration) Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	b, ok := f.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(window)}
		f.buckets[key] = b
	}
	b.count++

	res := Result{
		Allowed:   b.count <= limit,
		Remaining: max(0, limit-b.count),
		ResetAt:   b.resetAt,
	}
	if !res.Allowed {
		res.RetryAfter = b.resetAt.Sub(now)
	}
	return res
}

// Len returns the number of tracked keys.
func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.buckets)
}
