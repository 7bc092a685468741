package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisLib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Views   int64   `json:"views"`
	Revenue float64 `json:"revenue"`
}

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redisLib.NewClient(&redisLib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client), mr
}

func TestCache_SetGet(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", payload{Views: 1500, Revenue: 6}, time.Minute))

	var got payload
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Views: 1500, Revenue: 6}, got)
}

func TestCache_Miss(t *testing.T) {
	cache, _ := setupCache(t)

	var got payload
	found, err := cache.Get(context.Background(), "missing", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Expiry(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", payload{Views: 1}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var got payload
	found, _ := cache.Get(ctx, "k", &got)
	assert.False(t, found)
}

func TestCache_Version(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()

	v, err := cache.GetVersion(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	cache.IncrementVersion(ctx, "v")
	cache.IncrementVersion(ctx, "v")
	v, err = cache.GetVersion(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestCache_VersionErrorsAreNotZero(t *testing.T) {
	cache, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("v", "not-a-number"))
	_, err := cache.GetVersion(ctx, "v")
	assert.Error(t, err)

	mr.Del("v")
	mr.SetError("LOADING redis is loading the dataset in memory")
	_, err = cache.GetVersion(ctx, "v")
	assert.Error(t, err)
}

func TestCache_DisabledIsNoop(t *testing.T) {
	cache := NewCache(nil)
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	assert.NoError(t, cache.Set(ctx, "k", payload{}, time.Minute))
	found, err := cache.Get(ctx, "k", &payload{})
	assert.NoError(t, err)
	assert.False(t, found)
	v, err := cache.GetVersion(ctx, "v")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), v)
	cache.IncrementVersion(ctx, "v")
}
