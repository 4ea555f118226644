package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d should pass", i+1)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
}

func TestLimiterTracksClientsSeparately(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.Equal(t, 2, rl.ActiveClients())
}
