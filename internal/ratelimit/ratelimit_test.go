package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4"))
	}
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestKeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter(2, time.Minute)

	current := time.Unix(1700000000, 0)
	l.now = func() time.Time { return current }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	current = current.Add(61 * time.Second)
	assert.True(t, l.Allow("a"))
}

func TestStaleKeysSweptDuringAllow(t *testing.T) {
	l := NewLimiter(5, time.Minute)

	current := time.Unix(1700000000, 0)
	l.now = func() time.Time { return current }

	for i := 0; i < 1000; i++ {
		l.Allow(fmt.Sprintf("203.0.113.%d", i))
	}
	assert.Len(t, l.hits, 1000)

	// One-off clients never hit again; the next request after the window
	// elapses reclaims all of them.
	current = current.Add(2 * time.Minute)
	assert.True(t, l.Allow("fresh"))
	assert.Len(t, l.hits, 1)
	assert.Contains(t, l.hits, "fresh")
}

func TestPruneStale(t *testing.T) {
	l := NewLimiter(5, time.Minute)

	current := time.Unix(1700000000, 0)
	l.now = func() time.Time { return current }

	l.Allow("old")
	current = current.Add(2 * time.Minute)
	l.Allow("fresh")

	l.PruneStale()

	assert.NotContains(t, l.hits, "old")
	assert.Contains(t, l.hits, "fresh")
}
