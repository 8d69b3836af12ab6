// Package feed delivers leaderboard updates to live subscribers.
package feed

import (
	"context"
	"sync"

	"github.com/verte-zerg/typetrack/internal/model"
)

// subscriberBuffer bounds how far a slow subscriber may lag before updates are dropped for it.
const subscriberBuffer = 16

// Feed publishes updates and fans them out to subscribers.
type Feed interface {
	Publish(ctx context.Context, u model.Update) error
	// Subscribe returns a channel of updates that is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan model.Update, error)
}

// Hub is an in-process Feed.
type Hub struct {
	mu   sync.Mutex
	subs map[chan model.Update]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan model.Update]struct{}{}}
}

// Publish delivers u to every subscriber without blocking. Subscribers with a full buffer miss it.
func (h *Hub) Publish(_ context.Context, u model.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- u:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context) (<-chan model.Update, error) {
	ch := make(chan model.Update, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch, nil
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
