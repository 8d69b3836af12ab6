package feed

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

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return NewRedis(client, ""), mr
}

func TestRedisDeliversPublishedUpdates(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)

	sent := model.Update{User: "alice", WPM: 72.5, Accuracy: 96, Timestamp: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
	require.NoError(t, r.Publish(ctx, sent))

	got := receive(t, ch)
	assert.Equal(t, sent.User, got.User)
	assert.Equal(t, sent.WPM, got.WPM)
	assert.True(t, sent.Timestamp.Equal(got.Timestamp))
}

func TestRedisSkipsMalformedPayloads(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)

	mr.Publish(DefaultChannel, "not json")
	require.NoError(t, r.Publish(ctx, model.Update{User: "bob", WPM: 50}))
	assert.Equal(t, "bob", receive(t, ch).User)
}

func TestRedisClosesChannelOnCancel(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("channel was not closed after cancel")
	}
}
