package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0, "t:")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

type item struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func TestGetOrLoadJSON(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	load := func(context.Context) (item, error) {
		calls.Add(1)
		return item{Name: "a", N: 1}, nil
	}

	for range 3 {
		got, err := GetOrLoadJSON(ctx, c, "k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, item{Name: "a", N: 1}, got)
	}
	assert.Equal(t, int32(1), calls.Load())

	raw, err := mr.Get("t:k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","n":1}`, raw)
	assert.Greater(t, mr.TTL("t:k"), time.Duration(0))
}

func TestGetOrLoadJSON_LoadErrorNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	boom := errors.New("boom")

	_, err := GetOrLoadJSON(context.Background(), c, "k", time.Minute, func(context.Context) (item, error) {
		return item{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("t:k"))
}

func TestGetOrLoad_Singleflight(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("v"), nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.GetOrLoad(ctx, "hot", time.Minute, load)
			assert.NoError(t, err)
			assert.Equal(t, []byte("v"), b)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestGenerationAndBump(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	n, err := c.Generation(ctx, "gen")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, c.Bump(ctx, "gen"))
	require.NoError(t, c.Bump(ctx, "gen"))
	n, err = c.Generation(ctx, "gen")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestGeneration_RedisDown(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()

	_, err := c.Generation(context.Background(), "gen")
	assert.Error(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestGetOrLoad_LoaderIgnoresCallerCancel(t *testing.T) {
	c, mr := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := c.GetOrLoad(ctx, "k", time.Minute, func(lctx context.Context) ([]byte, error) {
		if err := lctx.Err(); err != nil {
			return nil, err
		}
		return []byte("v"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), b)

	raw, err := mr.Get("t:k")
	require.NoError(t, err)
	assert.Equal(t, "v", raw)
}

func TestDel(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("t:a", "1"))
	require.NoError(t, mr.Set("t:b", "2"))

	require.NoError(t, c.Del(context.Background(), "a", "missing"))
	assert.False(t, mr.Exists("t:a"))
	assert.True(t, mr.Exists("t:b"))
}
