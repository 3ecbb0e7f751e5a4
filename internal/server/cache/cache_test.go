package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*RedisLeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLeaderboardCache(rdb, 15*time.Second), mr
}

func TestRedisLeaderboardCache_RoundTripAndTTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	entries := []models.LeaderboardEntry{
		{UserID: "b", Username: "bob", AchievementsCount: 2, TotalPrize: 900},
		{UserID: "a", Username: "alice", AchievementsCount: 2, TotalPrize: 500},
	}
	require.NoError(t, c.Set(ctx, gen, entries))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entries, got)
	assert.Equal(t, 15*time.Second, mr.TTL(leaderboardKey(0)))

	mr.FastForward(16 * time.Second)
	_, ok, err = c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLeaderboardCache_EmptyBoardIsAHit(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, nil))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestRedisLeaderboardCache_Invalidate(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, []models.LeaderboardEntry{{UserID: "a"}}))
	require.NoError(t, c.Invalidate(ctx))

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	require.NoError(t, c.Invalidate(ctx))
	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}

func TestRedisLeaderboardCache_StaleWriteIsNotServed(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	// a refresh reads the generation, then an accept invalidates before the
	// refresh stores its result
	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, []models.LeaderboardEntry{{UserID: "stale"}}))

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, fresh, []models.LeaderboardEntry{{UserID: "fresh"}}))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fresh", got[0].UserID)
}

func TestRedisLeaderboardCache_CorruptValueIsMiss(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set(leaderboardKey(0), "{not json"))

	_, ok, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLeaderboardCache_ServerDown(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	_, _, err := c.Get(context.Background())
	assert.Error(t, err)
	_, err = c.Generation(context.Background())
	assert.Error(t, err)
	assert.Error(t, c.Invalidate(context.Background()))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestNoopLeaderboardCache(t *testing.T) {
	var c LeaderboardCache = NoopLeaderboardCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 0, []models.LeaderboardEntry{{UserID: "a"}}))
	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx))
}
