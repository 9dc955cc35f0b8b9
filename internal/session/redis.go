package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis so multiple server instances share
// one view of in-flight onboarding attempts. SET is atomic per key, so
// concurrent BeginAuthorization calls serialize to last-writer-wins.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func stateKey(providerID string) string    { return "onboarding:state:" + providerID }
func consumedKey(providerID string) string { return "onboarding:consumed:" + providerID }

func (s *RedisStore) Put(ctx context.Context, providerID, token string) error {
	if err := s.client.Set(ctx, stateKey(providerID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, providerID string) (string, bool, error) {
	token, err := s.client.Get(ctx, stateKey(providerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session: %w", err)
	}
	return token, true, nil
}

func (s *RedisStore) Consume(ctx context.Context, providerID, token string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, stateKey(providerID))
	pipe.Set(ctx, consumedKey(providerID), token, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("consume session: %w", err)
	}
	return nil
}

func (s *RedisStore) Consumed(ctx context.Context, providerID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	last, err := s.client.Get(ctx, consumedKey(providerID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check consumed: %w", err)
	}
	return last == token, nil
}
