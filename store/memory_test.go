package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/prxs-ai/agentkit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryCache(t *testing.T) {
	ctx := context.Background()
	c := store.NewMemoryCache()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_MemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := store.NewMemoryCache()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// zero TTL never expires
	require.NoError(t, c.Set(ctx, "p", []byte("v"), 0))
	_, ok, err = c.Get(ctx, "p")
	require.NoError(t, err)
	assert.True(t, ok)
}
