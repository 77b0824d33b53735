package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secdash/internal/cache"
	apperrors "secdash/internal/errors"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_Lifecycle(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrNoSession)

	require.NoError(t, s.Set(ctx, "abc", Data{UserKey: "alice"}))
	assert.True(t, mr.Exists("session:abc"))
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	data, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "alice", data[UserKey])

	require.NoError(t, s.Delete(ctx, "abc"))
	_, err = s.Get(ctx, "abc")
	assert.ErrorIs(t, err, apperrors.ErrNoSession)
}

func TestRedisStore_TouchExtendsTTL(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "abc", Data{UserKey: "alice"}))
	mr.FastForward(50 * time.Minute)

	require.NoError(t, s.Touch(ctx, "abc"))
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	mr.FastForward(61 * time.Minute)
	_, err := s.Get(ctx, "abc")
	assert.ErrorIs(t, err, apperrors.ErrNoSession)
	assert.ErrorIs(t, s.Touch(ctx, "abc"), apperrors.ErrNoSession)
}

func TestRedisStore_Unavailable(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := s.Get(ctx, "abc")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.ErrorIs(t, s.Set(ctx, "abc", Data{UserKey: "alice"}), apperrors.ErrStoreUnavailable)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	require.NoError(t, mr.Set("session:abc", "not json"))

	_, err := s.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}
