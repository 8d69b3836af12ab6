// Package cache stores JSON values in Redis with a TTL.
//
// A nil *Cache is valid and behaves as an always-empty cache, so callers never branch on whether
// Redis is configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verte-zerg/typetrack/internal/model"
)

const (
	PromptTTL      = 300 * time.Second
	LeaderboardTTL = 60 * time.Second

	leaderboardPrefix = "leaderboard:"
	// Outside leaderboardPrefix so invalidation never deletes it.
	leaderboardEpochKey = "leaderboard-epoch"
)

// Options selects the Redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect dials Redis and verifies the connection with PING.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			// Best-effort close on failed ping.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Cache is a JSON cache backed by Redis.
type Cache struct {
	client *redis.Client
}

// New wraps client. A nil client yields a nil Cache.
func New(client *redis.Client) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client}
}

// Get decodes the value stored at key into dst. found is false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dst any) (found bool, err error) {
	if c == nil {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// Set stores v at key for ttl.
func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// LeaderboardEpoch returns the invalidation counter embedded in leaderboard keys. It is zero until
// the first invalidation.
func (c *Cache) LeaderboardEpoch(ctx context.Context) (uint64, error) {
	if c == nil {
		return 0, nil
	}
	n, err := c.client.Get(ctx, leaderboardEpochKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read leaderboard epoch: %w", err)
	}
	return n, nil
}

// InvalidateLeaderboards advances the leaderboard epoch and drops every cached leaderboard. A read
// that started before the call can still write its result afterwards, but only under the old epoch,
// where no later reader looks.
func (c *Cache) InvalidateLeaderboards(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.client.Incr(ctx, leaderboardEpochKey).Err(); err != nil {
		return fmt.Errorf("failed to advance leaderboard epoch: %w", err)
	}
	iter := c.client.Scan(ctx, 0, leaderboardPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan leaderboard keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete leaderboard keys: %w", err)
	}
	return nil
}

// PromptKey is the cache key of a prompt lookup.
func PromptKey(difficulty model.Difficulty, category string) string {
	return fmt.Sprintf("prompt:%s:%s", difficulty, category)
}

// LeaderboardKey is the cache key of a leaderboard query read at epoch.
func LeaderboardKey(q model.LeaderboardQuery, epoch uint64) string {
	difficulty := string(q.Difficulty)
	if difficulty == "" {
		difficulty = "any"
	}
	return fmt.Sprintf("%s%d:%s:%s:%d", leaderboardPrefix, epoch, q.Timeframe, difficulty, q.Limit)
}
