package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candlecast/internal/testsupport"
	"candlecast/pkg/errors"
)

func TestModelStore_PutGet(t *testing.T) {
	cfg := testsupport.RedisConfigFromEnv(t)
	client := testsupport.NewRedisClient(t, cfg)
	ctx := context.Background()

	store := NewModelStore(client, cfg.KeyPrefix, 0)

	_, err := store.Get(ctx, "model3")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, store.Put(ctx, "model3", []byte(`{"version":1}`)))

	data, err := store.Get(ctx, "model3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(data))

	keys, err := client.Keys(ctx, cfg.KeyPrefix+"*").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{cfg.KeyPrefix + "model3"}, keys)
}

func TestModelStore_TTL(t *testing.T) {
	cfg := testsupport.RedisConfigFromEnv(t)
	client := testsupport.NewRedisClient(t, cfg)
	ctx := context.Background()

	store := NewModelStore(client, cfg.KeyPrefix, time.Hour)
	require.NoError(t, store.Put(ctx, "short", []byte("x")))

	ttl, err := client.TTL(ctx, cfg.KeyPrefix+"short").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}
