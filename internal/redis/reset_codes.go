package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCodeNotFound = errors.New("reset code not found or expired")

// CodeStore keeps password reset codes with a TTL so they survive restarts
// and are shared between api-server instances.
type CodeStore interface {
	Save(ctx context.Context, email, code string) error
	// Consume returns nil only when code matches; a match deletes it.
	Consume(ctx context.Context, email, code string) error
}

type redisCodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCodeStore(client *redis.Client, ttl time.Duration) CodeStore {
	return &redisCodeStore{client: client, ttl: ttl}
}

func resetKey(email string) string {
	return "reset:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *redisCodeStore) Save(ctx context.Context, email, code string) error {
	if err := s.client.Set(ctx, resetKey(email), code, s.ttl).Err(); err != nil {
		return fmt.Errorf("save reset code: %w", err)
	}
	return nil
}

// Consume uses compare-and-delete so a code cannot be used twice even by
// concurrent requests.
func (s *redisCodeStore) Consume(ctx context.Context, email, code string) error {
	n, err := compareAndDelete.Run(ctx, s.client, []string{resetKey(email)}, code).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("consume reset code: %w", err)
	}
	if n == 0 {
		return ErrCodeNotFound
	}
	return nil
}
