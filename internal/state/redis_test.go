package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewRedisStore(RedisOptions{Address: mr.Addr(), Prefix: prefix})
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		ttl     time.Duration
		wantKey string
		wantTTL time.Duration
	}{
		{name: "default prefix with ttl", ttl: time.Minute, wantKey: DefaultRedisPrefix + "k", wantTTL: time.Minute},
		{name: "custom prefix", prefix: "t:", ttl: time.Hour, wantKey: "t:k", wantTTL: time.Hour},
		{name: "no expiry", ttl: 0, wantKey: DefaultRedisPrefix + "k"},
		{name: "negative ttl keeps entry", ttl: -time.Second, wantKey: DefaultRedisPrefix + "k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mr := newMiniRedisStore(t, tt.prefix)
			ctx := context.Background()

			require.NoError(t, store.Ping(ctx))
			require.NoError(t, store.Set(ctx, "k", []byte(`{"text":"ok"}`), tt.ttl))

			assert.True(t, mr.Exists(tt.wantKey))
			assert.Equal(t, tt.wantTTL, mr.TTL(tt.wantKey))

			got, ok, err := store.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"text":"ok"}`, string(got))
		})
	}
}

func TestRedisStore_Missing(t *testing.T) {
	store, mr := newMiniRedisStore(t, "")
	ctx := context.Background()

	got, ok, err := store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ServerError(t *testing.T) {
	store, mr := newMiniRedisStore(t, "")
	mr.SetError("LOADING dataset")

	_, ok, err := store.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, store.Set(context.Background(), "k", []byte("v"), time.Minute))
}

func TestRedisStore_Unreachable(t *testing.T) {
	store := NewRedisStore(RedisOptions{Address: "127.0.0.1:1"})
	defer store.Close()
	assert.Equal(t, DefaultRedisPrefix, store.prefix)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, store.Ping(ctx))
	_, ok, err := store.Get(ctx, "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, store.Set(ctx, "k", []byte("v"), time.Minute))
}

func TestRedisStore_Closed(t *testing.T) {
	store := NewRedisStore(RedisOptions{Address: "127.0.0.1:1", Prefix: "t:"})
	assert.Equal(t, "t:", store.prefix)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	_, _, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, store.Set(context.Background(), "k", nil, 0), ErrNotOpen)
	assert.ErrorIs(t, store.Ping(context.Background()), ErrNotOpen)
}

func TestRedisStore_CloseDuringUse(t *testing.T) {
	store, _ := newMiniRedisStore(t, "")
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _, err := store.Get(ctx, "k")
				if err != nil {
					assert.ErrorIs(t, err, ErrNotOpen)
				}
			}
		}()
	}
	assert.NoError(t, store.Close())
	wg.Wait()

	_, _, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotOpen)
}
