package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := New("", "", 0)
	assert.False(t, c.Distributed())

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Now()
	c.local.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	now = now.Add(2 * time.Second)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNilClient_IsEmpty(t *testing.T) {
	ctx := context.Background()
	var c *Client

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, c.Publish(ctx, "ch", []byte("x")))

	ch, cancel := c.Subscribe(ctx, "ch")
	defer cancel()
	select {
	case <-ch:
		t.Fatal("nil client must not deliver")
	default:
	}
}

func TestConnect_FallsBackToMemory(t *testing.T) {
	ctx := context.Background()

	c, err := Connect(ctx, "127.0.0.1:1", "", 0)
	require.Error(t, err)
	require.NotNil(t, c)
	assert.False(t, c.Distributed())

	require.NoError(t, c.Set(ctx, "blacklist:abc", []byte("1"), time.Minute))
	got, err := c.Get(ctx, "blacklist:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}

func TestConnect_EmptyAddrIsMemory(t *testing.T) {
	c, err := Connect(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.False(t, c.Distributed())
}
