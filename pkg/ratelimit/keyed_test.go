package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimitsPerKey(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lim := PerMinute(1, 2)
	lim.now = func() time.Time { return base }

	assert.True(t, lim.Allow("worker-1"))
	assert.True(t, lim.Allow("worker-1"))
	assert.False(t, lim.Allow("worker-1"))
	assert.True(t, lim.Allow("worker-2"))

	lim.now = func() time.Time { return base.Add(time.Minute) }
	assert.True(t, lim.Allow("worker-1"))
}

func TestKeyedEvictsIdleKeys(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lim := PerMinute(10, 1)
	lim.now = func() time.Time { return base }
	lim.Allow("a")
	lim.Allow("b")
	assert.Equal(t, 2, lim.Len())

	lim.now = func() time.Time { return base.Add(30 * time.Minute) }
	lim.Allow("c")
	assert.Equal(t, 1, lim.Len())
}

func TestKeyedDisabled(t *testing.T) {
	lim := PerMinute(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, lim.Allow("x"))
	}
	var nilLimiter *Keyed
	assert.True(t, nilLimiter.Allow("x"))
}
