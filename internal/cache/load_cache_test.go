package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSource struct {
	loads map[int64]int
	calls int
	err   error
}

func (s *countingSource) ActiveLoads(ctx context.Context) (map[int64]int, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64]int, len(s.loads))
	for k, v := range s.loads {
		out[k] = v
	}
	return out, nil
}

func setupCache(t *testing.T, source LoadSource) (*miniredis.Miniredis, *LoadCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewLoadCache(client, source, 30*time.Second, zap.NewNop())
}

func TestLoadsServedFromSnapshotUntilExpiry(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{loads: map[int64]int{1: 3, 2: 1}}
	mr, cache := setupCache(t, source)

	loads, err := cache.Loads(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 3, 2: 1}, loads)
	assert.Equal(t, 1, source.calls)
	assert.True(t, mr.Exists(DefaultLoadKey))

	source.loads[1] = 0
	loads, err = cache.Loads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loads[1], "stale snapshot is acceptable")
	assert.Equal(t, 1, source.calls)

	mr.FastForward(31 * time.Second)
	loads, err = cache.Loads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, loads[1])
	assert.Equal(t, 2, source.calls)
}

func TestEmptyPoolStillCached(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{loads: map[int64]int{}}
	_, cache := setupCache(t, source)

	for i := 0; i < 3; i++ {
		loads, err := cache.Loads(ctx)
		require.NoError(t, err)
		assert.Empty(t, loads)
	}
	assert.Equal(t, 1, source.calls)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{loads: map[int64]int{7: 2}}
	_, cache := setupCache(t, source)

	_, err := cache.Loads(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))

	source.loads[7] = 5
	loads, err := cache.Loads(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, loads[7])
	assert.Equal(t, 2, source.calls)
}

func TestRedisFailureFallsBackToSource(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{loads: map[int64]int{4: 1}}
	mr, cache := setupCache(t, source)
	mr.Close()

	loads, err := cache.Loads(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{4: 1}, loads)
}

func TestSourceErrorPropagates(t *testing.T) {
	source := &countingSource{err: errors.New("db down")}
	_, cache := setupCache(t, source)
	_, err := cache.Loads(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestNilClientBypassesCache(t *testing.T) {
	source := &countingSource{loads: map[int64]int{1: 1}}
	cache := NewLoadCache(nil, source, time.Minute, nil)
	_, _ = cache.Loads(context.Background())
	_, _ = cache.Loads(context.Background())
	assert.Equal(t, 2, source.calls)
	assert.NoError(t, cache.Invalidate(context.Background()))
}
