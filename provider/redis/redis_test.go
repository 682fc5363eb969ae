package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	p, err := New(Config{Client: client, CloseClient: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return mr, p
}

func TestNilClient(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	_, p := newTestProvider(t)

	_, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Set(ctx, "k", []byte{0, 1, 2}, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	b, ok, err := p.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0, 1, 2}, b)

	require.NoError(t, p.Del(ctx, "k"))
	require.NoError(t, p.Del(ctx, "k"))
	_, ok, err = p.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTTL(t *testing.T) {
	ctx := context.Background()
	mr, p := newTestProvider(t)

	_, err := p.Set(ctx, "short", []byte("x"), 1, 2*time.Second)
	require.NoError(t, err)
	_, err = p.Set(ctx, "forever", []byte("y"), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, mr.TTL("short"))
	assert.Equal(t, time.Duration(0), mr.TTL("forever"))

	mr.FastForward(3 * time.Second)
	_, ok, err := p.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = p.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBackendErrorIsNotAMiss(t *testing.T) {
	mr, p := newTestProvider(t)
	mr.Close()

	_, ok, err := p.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestCloseIdempotent(t *testing.T) {
	_, p := newTestProvider(t)
	require.NoError(t, p.Close(context.Background()))
	require.NoError(t, p.Close(context.Background()))
}
