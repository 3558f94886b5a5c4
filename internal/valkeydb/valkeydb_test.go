package valkeydb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUpTestDB(t *testing.T) *ValkeyClient {

	t.Helper()

	url := os.Getenv("VALKEY_TEST_URL")
	if url == "" {
		t.Skip("VALKEY_TEST_URL not set, skipping integration test")
	}

	ctx := context.Background()

	db, err := New(ctx, url, os.Getenv("VALKEY_TEST_PASSWORD"))
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(db.Close)

	return db
}

func TestWindowKeyChangesPerWindow(t *testing.T) {
	l := NewWindowLimiter(nil, 1, time.Minute)
	now := time.Unix(600, 0)
	l.now = func() time.Time { return now }

	first := l.windowKey("1.2.3.4")
	assert.Equal(t, "gallery:ratelimit:1.2.3.4:10", first)

	now = now.Add(59 * time.Second)
	assert.Equal(t, first, l.windowKey("1.2.3.4"))

	now = now.Add(time.Second)
	assert.NotEqual(t, first, l.windowKey("1.2.3.4"))
}

func TestWindowFor(t *testing.T) {
	window, limit := WindowFor(1, 5)
	assert.Equal(t, 5*time.Second, window)
	assert.Equal(t, int64(5), limit)

	window, _ = WindowFor(100, 5)
	assert.Equal(t, time.Second, window)

	window, limit = WindowFor(0, 0)
	assert.Equal(t, time.Second, window)
	assert.Equal(t, int64(1), limit)
}

func TestWindowLimiterAllow(t *testing.T) {
	db := setUpTestDB(t)
	ctx := context.Background()

	limiter := NewWindowLimiter(db, 2, time.Minute)
	client := "test-" + uuid.New().String()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, client)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := limiter.Allow(ctx, client)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := db.Client.Do(ctx, db.Client.B().Ttl().Key(limiter.windowKey(client)).Build()).AsInt64()
	require.NoError(t, err)
	assert.Greater(t, ttl, int64(0))
}
