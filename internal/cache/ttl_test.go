package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// manualClock is a Clock advanced explicitly by tests
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTL_HitBeforeExpiry(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := NewTTL[[]string](10*time.Minute, WithClock(clock))

	c.Set("mutual_fund_data", []string{"120437"})
	clock.Advance(9 * time.Minute)

	value, ok := c.Get("mutual_fund_data")
	assert.True(t, ok)
	assert.Equal(t, []string{"120437"}, value)
}

func TestTTL_MissAtExpiry(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := NewTTL[string](10*time.Minute, WithClock(clock))

	c.Set("k", "v")
	clock.Advance(10 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on read")
}

func TestTTL_SetRefreshesExpiry(t *testing.T) {
	clock := &manualClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	c := NewTTL[string](time.Minute, WithClock(clock))

	c.Set("k", "first")
	clock.Advance(50 * time.Second)
	c.Set("k", "second")
	clock.Advance(50 * time.Second)

	value, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestTTL_MissingKeyAndDelete(t *testing.T) {
	c := NewTTL[int](time.Minute)

	_, ok := c.Get("absent")
	assert.False(t, ok)

	c.Set("k", 1)
	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	c := NewTTL[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Set("k", n)
		}(i)
		go func() {
			defer wg.Done()
			c.Get("k")
		}()
	}
	wg.Wait()

	_, ok := c.Get("k")
	assert.True(t, ok)
}
