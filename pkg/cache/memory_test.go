package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Ticker string  `json:"ticker"`
		Score  float64 `json:"score"`
	}
	require.NoError(t, mc.Set(ctx, Key("kpis", "AAPL"), payload{Ticker: "AAPL", Score: 0.5}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, Key("kpis", "AAPL"), &got))
	assert.Equal(t, payload{Ticker: "AAPL", Score: 0.5}, got)

	require.NoError(t, mc.DeleteByPattern(ctx, "kpis:*"))
	ok, err := mc.Exists(ctx, Key("kpis", "AAPL"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()
	key := Key("aggregate", "inst", 1, 2)
	assert.Equal(t, "aggregate:inst:1:2", key)

	ok, err := mc.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, key))
	ok, err = mc.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCacheExpiredLockCanBeTaken(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "k", time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	ok, err = mc.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
