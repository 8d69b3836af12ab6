package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typetrack/internal/model"
)

func receive(t *testing.T, ch <-chan model.Update) model.Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "channel closed")
		return u
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
	}
	return model.Update{}
}

func TestHubFansOutToEverySubscriber(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := hub.Subscribe(ctx)
	require.NoError(t, err)
	b, err := hub.Subscribe(ctx)
	require.NoError(t, err)

	u := model.Update{User: "alice", WPM: 71.5, Accuracy: 98}
	require.NoError(t, hub.Publish(ctx, u))
	assert.Equal(t, u, receive(t, a))
	assert.Equal(t, u, receive(t, b))
}

func TestHubUnsubscribesOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := hub.Subscribe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Subscribers())

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel")
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
	assert.Equal(t, 0, hub.Subscribers())
	assert.NoError(t, hub.Publish(context.Background(), model.Update{User: "bob"}))
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := hub.Subscribe(ctx)
	require.NoError(t, err)

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, hub.Publish(ctx, model.Update{WPM: float64(i)}))
	}
	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, 0.0, receive(t, ch).WPM)
}
