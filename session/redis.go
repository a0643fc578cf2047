package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "chat:history:"

// redisStore keeps each session's turns as one JSON value with a TTL, so
// abandoned sessions expire on their own. Append is read-modify-write; see
// the Store contract for the accepted race.
type redisStore struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

// NewRedisStore returns a Redis-backed store. maxTurns <= 0 uses
// DefaultMaxTurns; ttl <= 0 defaults to 24h.
func NewRedisStore(client *redis.Client, maxTurns int, ttl time.Duration) Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{client: client, maxTurns: maxTurns, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, id string) ([]Turn, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal([]byte(val), &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return turns, nil
}

func (s *redisStore) Append(ctx context.Context, id string, user, assistant Turn) error {
	history, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	history = trim(append(history, user, assistant), s.maxTurns)

	val, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+id, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
