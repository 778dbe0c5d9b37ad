package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/config"
)

// CS_TEST_REDIS_ADDR enables these tests against a live server.
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("CS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CS_TEST_REDIS_ADDR not set")
	}
	cfg := config.Default().Redis
	cfg.Addr = addr

	c, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLookupMissAndHit(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	key := fmt.Sprintf("cs-test:%d:lookup", time.Now().UnixNano())
	t.Cleanup(func() { c.FlushByPattern(context.Background(), key) })

	_, found, err := c.Lookup(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, key, []byte("value"), time.Minute))
	val, found, err := c.Lookup(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", val)
}

func TestFlushByPattern(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	prefix := fmt.Sprintf("cs-test:%d:", time.Now().UnixNano())

	for i := range 150 {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("%s%d", prefix, i), []byte("x"), time.Minute))
	}
	deleted, err := c.FlushByPattern(ctx, prefix+"*")
	require.NoError(t, err)
	assert.Equal(t, int64(150), deleted)

	_, found, err := c.Lookup(ctx, prefix+"0")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewClientFailsWithoutServer(t *testing.T) {
	cfg := config.Default().Redis
	cfg.Addr = "127.0.0.1:1"
	_, err := NewClient(context.Background(), cfg)
	assert.Error(t, err)
}
