package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) *redis.Client {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
		DB:   0,
	})

	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		t.Fatalf("Failed to connect to test Redis: %v", err)
	}

	t.Cleanup(func() {
		redisClient.Close()
		mr.Close()
	})

	return redisClient
}

func take(t *testing.T, bucket *TokenBucket, subject string) bool {
	t.Helper()
	res, err := bucket.Take(context.Background(), subject, "stories")
	require.NoError(t, err)
	return res.Allowed
}

func TestTokenBucket_Take(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), 5, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.True(t, take(t, bucket, "editor"), "request %d", i+1)
	}
	assert.False(t, take(t, bucket, "editor"), "the sixth request is denied")

	res, err := bucket.Peek(ctx, "editor", "stories")
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Remaining)

	assert.True(t, take(t, bucket, "someone-else"), "buckets are per subject")
}

func TestTokenBucket_TakeReportsBalance(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), 10, 10)
	ctx := context.Background()

	peeked, err := bucket.Peek(ctx, "editor", "stories")
	require.NoError(t, err)
	assert.Equal(t, int64(10), peeked.Remaining)
	assert.True(t, peeked.Allowed)

	var res Result
	for i := 0; i < 3; i++ {
		res, err = bucket.Take(ctx, "editor", "stories")
		require.NoError(t, err)
	}
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(7), res.Remaining)
	assert.Equal(t, int64(10), res.Limit)
	assert.Equal(t, time.Minute, res.ResetAfter)

	peeked, err = bucket.Peek(ctx, "editor", "stories")
	require.NoError(t, err)
	assert.Equal(t, int64(7), peeked.Remaining, "peeking does not consume")
}

func TestTokenBucket_Refill(t *testing.T) {
	bucket := NewTokenBucket(setupTestRedis(t), 2, 2)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	bucket.now = func() time.Time { return now }

	require.True(t, take(t, bucket, "editor"))
	require.True(t, take(t, bucket, "editor"))
	require.False(t, take(t, bucket, "editor"))

	now = now.Add(time.Minute)
	assert.True(t, take(t, bucket, "editor"), "a full window refills the bucket")
}
