package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ms := NewMemoryStore(30 * time.Minute)
	ctx := context.Background()

	got, err := ms.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got, "empty store should return nil")

	s := NewSession(1)
	s.Name = "Анна"
	require.NoError(t, ms.Put(ctx, s))

	got, err = ms.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Анна", got.Name)

	require.NoError(t, ms.Delete(ctx, 1))
	got, err = ms.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreTTL(t *testing.T) {
	ms := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	fresh := NewSession(1)
	stale := NewSession(2)
	stale.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, ms.Put(ctx, fresh))
	require.NoError(t, ms.Put(ctx, stale))

	// Expired sessions are invisible even before the sweep runs.
	got, err := ms.Get(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, got)

	removed := ms.Cleanup()
	assert.Equal(t, 1, removed)

	got, err = ms.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, 30*time.Minute)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	rs := newTestRedisStore(t)
	ctx := context.Background()

	got, err := rs.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	s := NewSession(1)
	s.Name = "Анна Иванова"
	s.DayLabel = "Пн, 12.01"
	s.SlotKey = "curr_mon"
	require.NoError(t, rs.Put(ctx, s))

	got, err = rs.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.Name, got.Name)
	assert.Equal(t, s.SlotKey, got.SlotKey)
	assert.Equal(t, StateAskName, got.State)

	require.NoError(t, rs.Delete(ctx, 1))
	got, err = rs.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
