package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute, time.Minute)
	defer s.Close()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", []byte(`{"a":1}`), 0))
	got, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"a":1}`), got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute, time.Minute)

	require.NoError(t, s.Set(ctx, "short", []byte("x"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNew(t *testing.T) {
	s, err := New(Config{Backend: BackendMemory, TTL: time.Minute, CleanupInterval: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = New(Config{Backend: "memcached"})
	assert.Error(t, err)
}

func newMockValkeyStore(t *testing.T) (*ValkeyStore, *mock.Client) {
	t.Helper()
	client := mock.NewClient(gomock.NewController(t))
	return &ValkeyStore{client: client}, client
}

func TestValkeyStoreGet(t *testing.T) {
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		s, client := newMockValkeyStore(t)
		client.EXPECT().Do(gomock.Any(), mock.Match("GET", "nominatim:q=one-north")).
			Return(mock.Result(mock.ValkeyString(`[{"lat":"1.2996"}]`)))

		got, found, err := s.Get(ctx, "nominatim:q=one-north")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte(`[{"lat":"1.2996"}]`), got)
	})

	t.Run("miss", func(t *testing.T) {
		s, client := newMockValkeyStore(t)
		client.EXPECT().Do(gomock.Any(), mock.Match("GET", "nominatim:q=atlantis")).
			Return(mock.Result(mock.ValkeyNil()))

		got, found, err := s.Get(ctx, "nominatim:q=atlantis")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("server error", func(t *testing.T) {
		s, client := newMockValkeyStore(t)
		client.EXPECT().Do(gomock.Any(), mock.Match("GET", "overpass:q")).
			Return(mock.ErrorResult(errors.New("connection refused")))

		_, found, err := s.Get(ctx, "overpass:q")
		require.Error(t, err)
		assert.False(t, found)
	})
}

func TestValkeyStoreSet(t *testing.T) {
	ctx := context.Background()

	t.Run("with ttl", func(t *testing.T) {
		s, client := newMockValkeyStore(t)
		client.EXPECT().Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "600")).
			Return(mock.Result(mock.ValkeyString("OK")))

		require.NoError(t, s.Set(ctx, "k", []byte("v"), 10*time.Minute))
	})

	t.Run("without ttl", func(t *testing.T) {
		s, client := newMockValkeyStore(t)
		client.EXPECT().Do(gomock.Any(), mock.Match("SET", "k", "v")).
			Return(mock.Result(mock.ValkeyString("OK")))

		require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	})

	t.Run("server error", func(t *testing.T) {
		s, client := newMockValkeyStore(t)
		client.EXPECT().Do(gomock.Any(), gomock.Any()).
			Return(mock.ErrorResult(errors.New("READONLY")))

		assert.Error(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	})
}

func TestValkeyStoreClose(t *testing.T) {
	s, client := newMockValkeyStore(t)
	client.EXPECT().Close()
	s.Close()
}
