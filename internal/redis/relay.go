package redisclient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Relay fans chat events out to every api-server instance through Redis pub/sub.
type Relay interface {
	Publish(ctx context.Context, userID uuid.UUID, payload []byte) error
	// Subscribe delivers payloads published for userID until ctx is done.
	Subscribe(ctx context.Context, userID uuid.UUID) (<-chan []byte, error)
}

type redisRelay struct {
	client *redis.Client
}

func NewRedisRelay(client *redis.Client) Relay {
	return &redisRelay{client: client}
}

func userChannel(userID uuid.UUID) string {
	return "chat:user:" + userID.String()
}

func (r *redisRelay) Publish(ctx context.Context, userID uuid.UUID, payload []byte) error {
	if err := r.client.Publish(ctx, userChannel(userID), payload).Err(); err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}
	return nil
}

func (r *redisRelay) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan []byte, error) {
	ps := r.client.Subscribe(ctx, userChannel(userID))
	// wait for the subscription confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe chat channel: %w", err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
