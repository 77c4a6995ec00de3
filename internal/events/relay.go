package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vedran77/statusd/internal/logger"
)

// Broadcaster delivers an encoded event to locally connected clients.
type Broadcaster interface {
	Broadcast(data []byte)
}

// Relay forwards every message on a pub/sub channel to a Broadcaster.
type Relay struct {
	client  *redis.Client
	channel string
	out     Broadcaster
	logger  logger.Logger
}

func NewRelay(client *redis.Client, channel string, out Broadcaster, log logger.Logger) *Relay {
	return &Relay{client: client, channel: channel, out: out, logger: log}
}

// Run subscribes and relays until ctx is canceled.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so nothing published after
	// Run starts relaying is missed.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("event relay subscribed", logger.String("channel", r.channel))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.out.Broadcast([]byte(msg.Payload))
		}
	}
}
