package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parcel-tracker/internal/features/geolocation/domain"

	"github.com/redis/go-redis/v9"
)

const (
	// trailLength bounds how many positions are kept per courier.
	trailLength = 50
	// latestTTL expires a courier's latest position after inactivity.
	latestTTL = time.Hour
)

// RedisPositionStore implements ports.PositionStore on Redis. The latest
// position lives under a plain key with a TTL; the trail is a capped list.
type RedisPositionStore struct {
	client *redis.Client
}

// NewRedisPositionStore creates a store from a Redis URL.
// The redisURL should be in the format: redis://[:password@]host[:port][/database]
func NewRedisPositionStore(redisURL string) (*RedisPositionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	return &RedisPositionStore{client: redis.NewClient(opts)}, nil
}

func latestKey(courierID string) string {
	return "geo:courier:" + courierID + ":latest"
}

func trailKey(courierID string) string {
	return "geo:courier:" + courierID + ":trail"
}

// Record stores the latest position and prepends it to the capped trail.
func (s *RedisPositionStore) Record(ctx context.Context, position domain.CourierPosition) error {
	payload, err := json.Marshal(position)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, latestKey(position.CourierID), payload, latestTTL)
	pipe.LPush(ctx, trailKey(position.CourierID), payload)
	pipe.LTrim(ctx, trailKey(position.CourierID), 0, trailLength-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record position: %w", err)
	}
	return nil
}

// Latest returns the courier's most recent position.
func (s *RedisPositionStore) Latest(ctx context.Context, courierID string) (*domain.CourierPosition, error) {
	raw, err := s.client.Get(ctx, latestKey(courierID)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrPositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest position: %w", err)
	}

	var position domain.CourierPosition
	if err := json.Unmarshal(raw, &position); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position: %w", err)
	}
	return &position, nil
}

// Trail returns the courier's recent positions, newest-first.
func (s *RedisPositionStore) Trail(ctx context.Context, courierID string) ([]domain.CourierPosition, error) {
	rows, err := s.client.LRange(ctx, trailKey(courierID), 0, trailLength-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read position trail: %w", err)
	}

	trail := make([]domain.CourierPosition, 0, len(rows))
	for _, row := range rows {
		var position domain.CourierPosition
		if err := json.Unmarshal([]byte(row), &position); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trail entry: %w", err)
		}
		trail = append(trail, position)
	}
	return trail, nil
}

// Ping checks if Redis is reachable.
func (s *RedisPositionStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisPositionStore) Close() error {
	return s.client.Close()
}
