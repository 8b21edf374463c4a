package cache

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "k"))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_SetNXIsExclusive(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	first, err := s.SetNX(ctx, AnalysisLockKey("d1"), "1", 2*time.Minute)
	require.NoError(t, err)
	second, err := s.SetNX(ctx, AnalysisLockKey("d1"), "1", 2*time.Minute)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	mr.FastForward(2*time.Minute + time.Second)
	third, err := s.SetNX(ctx, AnalysisLockKey("d1"), "1", 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, third)
}

func TestRedisStore_IncrAndExpireAt(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	key := QuotaKey("u1", time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "ai:quota:u1:2024-05-06", key)

	n, err := s.Incr(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = s.Incr(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, s.ExpireAt(ctx, key, time.Now().Add(time.Hour)))
	assert.True(t, mr.TTL(key) > 0)
}

func TestRedisStore_KeysScansPattern(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for _, k := range []string{"ai:quota:a:2024-01-01", "ai:quota:b:2024-01-01", "analysis:lock:x"} {
		require.NoError(t, s.Set(ctx, k, "1", 0))
	}

	keys, err := s.Keys(ctx, QuotaPrefix+"*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"ai:quota:a:2024-01-01", "ai:quota:b:2024-01-01"}, keys)
}

func TestEndOfDay(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	got := EndOfDay(time.Date(2024, 5, 6, 23, 59, 0, 0, loc), loc)
	assert.Equal(t, time.Date(2024, 5, 7, 0, 0, 0, 0, loc), got)
}
