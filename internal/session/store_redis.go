package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lendflow/pkg/platform/sentinel"
)

const keyPrefix = "session:current_app:"

// RedisStore keeps session bindings in Redis so "current application" survives
// process restarts and is shared across instances. Bindings expire after the
// configured TTL; an expired binding reads as NotFound, same as never bound.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Bind(ctx context.Context, sessionID, applicationID string) error {
	if err := s.client.Set(ctx, keyPrefix+sessionID, applicationID, s.ttl).Err(); err != nil {
		return fmt.Errorf("bind session: %w", err)
	}
	return nil
}

func (s *RedisStore) Current(ctx context.Context, sessionID string) (string, error) {
	appID, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("read session binding: %w", err)
	}
	return appID, nil
}
