package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping redis test: TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	cache, err := NewRedisCache(ctx, addr, time.Minute)
	require.NoError(t, err)
	defer cache.Close()

	key := "test:" + uuid.NewString()
	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, key, []byte(`{"city":"Kyiv"}`)))
	v, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"city":"Kyiv"}`, string(v))
}

func TestNewRedisCache_RequiresAddr(t *testing.T) {
	_, err := NewRedisCache(context.Background(), " ", time.Minute)
	assert.Error(t, err)
}
