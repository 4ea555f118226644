package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsOldestWhenFull(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	assert.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUExpiresOnRead(t *testing.T) {
	c := NewLRUCache[string](8, 10*time.Millisecond)
	c.Set("k", "v")

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCleanExpired(t *testing.T) {
	c := NewLRUCache[int](16, 10*time.Millisecond)
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 99)

	assert.Equal(t, 4, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
}

func TestLRUSetOverwrites(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("k", 1)
	c.Set("k", 2)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())
}
