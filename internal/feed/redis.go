package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/verte-zerg/typetrack/internal/model"
)

// DefaultChannel is the pub/sub channel carrying leaderboard updates.
const DefaultChannel = "leaderboard_update"

// Redis is a Feed over Redis pub/sub, shared by every server attached to the same Redis.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Publish(ctx context.Context, u model.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish update: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context) (<-chan model.Update, error) {
	ps := r.client.Subscribe(ctx, r.channel)
	// Wait for the subscription confirmation so no update published after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		if cerr := ps.Close(); cerr != nil {
			// Best-effort close on failed subscribe.
			_ = cerr
		}
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	out := make(chan model.Update, subscriberBuffer)
	go func() {
		defer close(out)
		defer func() {
			if cerr := ps.Close(); cerr != nil {
				// Best-effort close.
				_ = cerr
			}
		}()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var u model.Update
				if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
					log.Printf("[WARN] dropping malformed update: %v", err)
					continue
				}
				select {
				case out <- u:
				default:
				}
			}
		}
	}()
	return out, nil
}
