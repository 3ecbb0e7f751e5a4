// Package cache keeps the computed leaderboard in Redis so that the
// aggregate query does not run on every page view.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	generationKey   = "leaderboard:gen"
	leaderboardKeyf = "leaderboard:v1:%d"
)

// LeaderboardCache stores the ranked leaderboard. Get reports a miss with
// ok == false and a nil error.
//
// Every Invalidate starts a new generation. A writer reads Generation before
// computing and passes it to Set, so a value computed before an invalidation
// is never served after it.
type LeaderboardCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context) (entries []models.LeaderboardEntry, ok bool, err error)
	Set(ctx context.Context, gen int64, entries []models.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// RedisLeaderboardCache stores the leaderboard as one JSON value with a TTL.
type RedisLeaderboardCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisLeaderboardCache(rdb redis.Cmdable, ttl time.Duration) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient connects and pings within 5s.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 100,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func leaderboardKey(gen int64) string {
	return fmt.Sprintf(leaderboardKeyf, gen)
}

func (c *RedisLeaderboardCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

func (c *RedisLeaderboardCache) Get(ctx context.Context) ([]models.LeaderboardEntry, bool, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, false, err
	}
	val, err := c.rdb.Get(ctx, leaderboardKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(val, &entries); err != nil {
		// a corrupt value is treated as a miss and recomputed
		return nil, false, nil
	}
	return entries, true, nil
}

// Set stores entries under generation gen. A stale gen lands in a key no
// reader looks at and expires with the TTL.
func (c *RedisLeaderboardCache) Set(ctx context.Context, gen int64, entries []models.LeaderboardEntry) error {
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, leaderboardKey(gen), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisLeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr generation: %w", err)
	}
	return nil
}

// NoopLeaderboardCache always misses. It is used when Redis is not configured.
type NoopLeaderboardCache struct{}

func (NoopLeaderboardCache) Generation(context.Context) (int64, error) { return 0, nil }

func (NoopLeaderboardCache) Get(context.Context) ([]models.LeaderboardEntry, bool, error) {
	return nil, false, nil
}

func (NoopLeaderboardCache) Set(context.Context, int64, []models.LeaderboardEntry) error { return nil }

func (NoopLeaderboardCache) Invalidate(context.Context) error { return nil }
