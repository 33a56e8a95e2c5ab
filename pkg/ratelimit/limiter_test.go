package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_Allow(t *testing.T) {
	tb := NewTokenBucket(5, 1.0)

	for i := 0; i < 5; i++ {
		assert.True(t, tb.Allow(), "burst request %d", i+1)
	}
	assert.False(t, tb.Allow(), "bucket drained")

	time.Sleep(1100 * time.Millisecond)
	assert.True(t, tb.Allow(), "one token refilled after a second")
	assert.False(t, tb.Allow())
}

func TestTokenBucket_Reset(t *testing.T) {
	tb := NewTokenBucket(3, 1.0)

	for i := 0; i < 3; i++ {
		tb.Allow()
	}
	assert.False(t, tb.Allow())

	tb.Reset()
	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "request %d after reset", i+1)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(2, 1.0, 0)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "first key drained")

	assert.True(t, rl.Allow("10.0.0.2"), "second key has its own bucket")
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(1, 1.0, 0)

	rl.Allow("10.0.0.1")
	assert.False(t, rl.Allow("10.0.0.1"))

	rl.Reset("10.0.0.1")
	assert.True(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_Remove(t *testing.T) {
	rl := NewRateLimiter(5, 1.0, 0)

	rl.Allow("10.0.0.1")
	assert.Equal(t, 1, rl.GetStats().ActiveBuckets)

	rl.Remove("10.0.0.1")
	assert.Equal(t, 0, rl.GetStats().ActiveBuckets)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(5, 1.0, 200*time.Millisecond)

	rl.Allow("10.0.0.1")
	assert.Equal(t, 1, rl.GetStats().ActiveBuckets)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, rl.GetStats().ActiveBuckets)
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(100, 100.0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				rl.Allow("shared-key")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rl.GetStats().ActiveBuckets)
}

func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl := NewRateLimiter(1000000, 1000000.0, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rl.Allow("benchmark-key")
	}
}
