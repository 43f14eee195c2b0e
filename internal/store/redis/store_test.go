package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu     sync.Mutex
	keys   map[string]interface{}
	err    error
	closed bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{keys: map[string]interface{}{}}
}

func (f *fakeClient) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = value
	return redis.NewBoolResult(true, nil)
}

func (f *fakeClient) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestSetIfAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fc := newFakeClient()
	store, err := NewWithClient(fc, time.Second)
	require.NoError(t, err)

	added, err := store.SetIfAbsent(ctx, "job:A1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, fc.keys["job:A1"])

	added, err = store.SetIfAbsent(ctx, "job:A1")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestExistsAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := NewWithClient(newFakeClient(), 0)
	require.NoError(t, err)

	ok, err := store.Exists(ctx, "job:A1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.SetIfAbsent(ctx, "job:A1")
	require.NoError(t, err)
	ok, err = store.Exists(ctx, "job:A1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "job:A1"))
	ok, err = store.Exists(ctx, "job:A1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestErrorsAreWrapped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fc := newFakeClient()
	fc.err = errors.New("i/o timeout")
	store, err := NewWithClient(fc, 0)
	require.NoError(t, err)

	_, err = store.SetIfAbsent(ctx, "job:A1")
	require.ErrorIs(t, err, fc.err)
	_, err = store.Exists(ctx, "job:A1")
	require.ErrorIs(t, err, fc.err)
	require.ErrorIs(t, store.Delete(ctx, "job:A1"), fc.err)
}

func TestClose(t *testing.T) {
	t.Parallel()

	fc := newFakeClient()
	store, err := NewWithClient(fc, 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.True(t, fc.closed)
}

func TestOpenRequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{})
	require.ErrorContains(t, err, "redis.addr is required")
}
