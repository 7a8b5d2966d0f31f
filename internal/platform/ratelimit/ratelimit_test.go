package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AdmitsUpToLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		d := l.Allow("portal")
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d := l.Allow("portal")
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Limit)
	assert.False(t, d.ResetAt.IsZero())
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	assert.True(t, l.Allow("portal").Allowed)
	assert.False(t, l.Allow("portal").Allowed)
	assert.True(t, l.Allow("reporting").Allowed)
}

func TestLimiter_WindowSlides(t *testing.T) {
	l := NewLimiter(2, 100*time.Millisecond)
	base := time.Now()
	l.now = func() time.Time { return base }

	assert.True(t, l.Allow("portal").Allowed)

	l.now = func() time.Time { return base.Add(80 * time.Millisecond) }
	assert.True(t, l.Allow("portal").Allowed)
	assert.False(t, l.Allow("portal").Allowed)

	// The first request falls out of the window; one slot frees up.
	l.now = func() time.Time { return base.Add(150 * time.Millisecond) }
	assert.True(t, l.Allow("portal").Allowed)
	assert.False(t, l.Allow("portal").Allowed)
}

func TestLimiter_DeniedRequestsAreNotCounted(t *testing.T) {
	l := NewLimiter(1, 100*time.Millisecond)
	base := time.Now()
	l.now = func() time.Time { return base }

	assert.True(t, l.Allow("portal").Allowed)
	for i := 0; i < 5; i++ {
		assert.False(t, l.Allow("portal").Allowed)
	}

	l.now = func() time.Time { return base.Add(150 * time.Millisecond) }
	assert.True(t, l.Allow("portal").Allowed)
}

func TestLimiter_Reset(t *testing.T) {
	l := NewLimiter(1, time.Minute)

	assert.True(t, l.Allow("portal").Allowed)
	assert.False(t, l.Allow("portal").Allowed)

	l.Reset("portal")
	assert.True(t, l.Allow("portal").Allowed)
}
