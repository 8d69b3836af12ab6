package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetrack/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return New(client), mr
}

func TestNilCacheIsAlwaysEmpty(t *testing.T) {
	c := New(nil)
	require.Nil(t, c)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, PromptTTL))
	var dst map[string]int
	found, err := c.Get(ctx, "k", &dst)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.InvalidateLeaderboards(ctx))
	epoch, err := c.LeaderboardEpoch(ctx)
	require.NoError(t, err)
	assert.Zero(t, epoch)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "prompt:hard:general", PromptKey(model.Hard, "general"))
	assert.Equal(t, "leaderboard:0:week:any:10",
		LeaderboardKey(model.LeaderboardQuery{Timeframe: model.LastWeek, Limit: 10}, 0))
	assert.Equal(t, "leaderboard:3:all:easy:5",
		LeaderboardKey(model.LeaderboardQuery{Timeframe: model.AllTime, Difficulty: model.Easy, Limit: 5}, 3))
}

func TestSetGetRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	p := model.Prompt{Text: "a quiet river", WordCount: 3, Length: 13, Difficulty: model.Easy, Category: "general"}
	key := PromptKey(model.Easy, "general")
	require.NoError(t, c.Set(ctx, key, p, PromptTTL))

	var got model.Prompt
	found, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, p, got)
	assert.Equal(t, PromptTTL, mr.TTL(key))

	mr.FastForward(PromptTTL + time.Second)
	found, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetRejectsMalformedValue(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("prompt:easy:general", "{not json"))

	var got model.Prompt
	found, err := c.Get(context.Background(), "prompt:easy:general", &got)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestInvalidateLeaderboardsAdvancesEpoch(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	q := model.LeaderboardQuery{Timeframe: model.AllTime, Limit: 10}
	entries := []model.LeaderboardEntry{{Username: "bob", Rank: 1, BestWPM: 90}}

	epoch, err := c.LeaderboardEpoch(ctx)
	require.NoError(t, err)
	require.Zero(t, epoch)
	require.NoError(t, c.Set(ctx, LeaderboardKey(q, epoch), entries, LeaderboardTTL))
	require.NoError(t, c.Set(ctx, PromptKey(model.Easy, "general"), model.Prompt{Text: "x"}, PromptTTL))

	require.NoError(t, c.InvalidateLeaderboards(ctx))

	next, err := c.LeaderboardEpoch(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)
	assert.False(t, mr.Exists(LeaderboardKey(q, epoch)))
	assert.True(t, mr.Exists(PromptKey(model.Easy, "general")))

	// A result computed before the invalidation lands under the old epoch.
	require.NoError(t, c.Set(ctx, LeaderboardKey(q, epoch), entries, LeaderboardTTL))
	var got []model.LeaderboardEntry
	found, err := c.Get(ctx, LeaderboardKey(q, next), &got)
	require.NoError(t, err)
	assert.False(t, found)
}
