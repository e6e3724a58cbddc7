package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResponseCache(t *testing.T) {
	c := NewResponseCache(time.Minute)
	c.Set("trend:AAPL:1:2", 1, 0)
	c.Set("trend:AAPL:3:4", 2, time.Second)
	c.Set("trend:AAPLX:1:2", 3, 0)
	c.Set("wordcloud:AAPL:1:2", 4, 0)

	v, ok := c.Get("trend:AAPL:1:2")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	assert.Equal(t, 2, c.DeletePrefix("trend:AAPL:"))
	_, ok = c.Get("trend:AAPL:3:4")
	assert.False(t, ok)
	_, ok = c.Get("trend:AAPLX:1:2")
	assert.True(t, ok)

	c.Flush()
	assert.Zero(t, c.Len())
}
