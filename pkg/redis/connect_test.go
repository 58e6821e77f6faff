package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somtumlabs/placekit/pkg/redis"
)

func TestConnectRejectsEmptyURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{})
	assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
}

func TestConnectRejectsMalformedURL(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "not-a-redis-url",
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrInvalidConnectionURL)
}

func TestConnectFailsWhenServerUnreachable(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://127.0.0.1:1/0", // nothing listens on port 1
		RetryAttempts:  2,
		RetryInterval:  time.Millisecond,
		ConnectTimeout: 2 * time.Second,
	})
	require.ErrorIs(t, err, redis.ErrNotReady)
}
