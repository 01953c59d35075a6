package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCheckAdmitsUpToLimitThenResets(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		res := limiter.Check("k", 3, time.Second)
		require.Truef(t, res.Allowed, "call %d should be admitted", i+1)
		assert.Equal(t, 2-i, res.Remaining)
		assert.Zero(t, res.RetryAfterMs())
	}

	clock.Advance(250 * time.Millisecond)
	rejected := limiter.Check("k", 3, time.Second)
	require.False(t, rejected.Allowed)
	assert.Equal(t, 0, rejected.Remaining)
	assert.Equal(t, int64(750), rejected.RetryAfterMs())

	clock.Advance(time.Second)
	fresh := limiter.Check("k", 3, time.Second)
	require.True(t, fresh.Allowed)
	assert.Equal(t, 2, fresh.Remaining)
	assert.Equal(t, clock.Now().Add(time.Second), fresh.ResetAt)
}

func TestCheckResetsExactlyAtBoundary(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))

	first := limiter.Check("k", 1, time.Second)
	require.True(t, first.Allowed)
	require.False(t, limiter.Check("k", 1, time.Second).Allowed)

	clock.Advance(time.Second)
	require.True(t, limiter.Check("k", 1, time.Second).Allowed)
}

func TestCheckAllowsBurstAcrossBoundary(t *testing.T) {
	clock := newClock()
	limiter := New(WithClock(clock.Now))

	clock.Advance(990 * time.Millisecond)
	for i := 0; i < 2; i++ {
		require.True(t, limiter.Check("k", 2, time.Second).Allowed)
	}
	// second window opens on the next call after resetAt
	clock.Advance(time.Second)
	for i := 0; i < 2; i++ {
		require.True(t, limiter.Check("k", 2, time.Second).Allowed)
	}
}

func TestCheckKeysAreIndependent(t *testing.T) {
	limiter := New(WithClock(newClock().Now))

	for i := 0; i < 4; i++ {
		limiter.Check("generate:1.2.3.4:ua", 3, time.Minute)
	}
	res := limiter.Check("prompts:1.2.3.4:ua", 3, time.Minute)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
	assert.Equal(t, 2, limiter.Len())
}

func TestCheckConcurrentCallersNeverOverAdmit(t *testing.T) {
	limiter := New()
	const callers = 64
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check("shared", 10, time.Hour).Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, admitted)
}
