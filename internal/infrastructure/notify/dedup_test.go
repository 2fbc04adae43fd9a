package notify

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		client.Del(context.Background(), dedupKey(sampleReminder()))
		client.Close()
	})
	client.Del(ctx, dedupKey(sampleReminder()))
	return client
}

func TestDedupNotifier_SuppressesRepeats(t *testing.T) {
	client := setupRedis(t)
	next := &countingNotifier{}
	d := NewDedupNotifier(client, next, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, d.Notify(ctx, sampleReminder()))
	require.NoError(t, d.Notify(ctx, sampleReminder()))

	assert.Equal(t, 1, next.calls)

	ttl, err := client.TTL(ctx, dedupKey(sampleReminder())).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestDedupNotifier_ReleasesMarkOnFailure(t *testing.T) {
	client := setupRedis(t)
	boom := errors.New("boom")
	next := &countingNotifier{err: boom}
	d := NewDedupNotifier(client, next, time.Minute, zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, d.Notify(ctx, sampleReminder()), boom)

	next.err = nil
	require.NoError(t, d.Notify(ctx, sampleReminder()))
	assert.Equal(t, 2, next.calls)
}
