package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/risk"
	"github.com/redis/go-redis/v9"
)

// RedisCache holds read-only projections: the seat list and risk scores.
// Nothing on the reservation path reads from it.
type RedisCache struct {
	client  redis.Cmdable
	seatTTL time.Duration
	riskTTL time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
}

func NewRedisCache(client redis.Cmdable, seatTTL, riskTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, seatTTL: seatTTL, riskTTL: riskTTL}
}

func (c *RedisCache) GetSeats(ctx context.Context) ([]domain.Seat, error) {
	var seats []domain.Seat
	found, err := c.get(ctx, seatsKey(), &seats)
	if err != nil || !found {
		return nil, err
	}
	return seats, nil
}

func (c *RedisCache) SetSeats(ctx context.Context, seats []domain.Seat) error {
	return c.set(ctx, seatsKey(), seats, c.seatTTL)
}

func (c *RedisCache) GetRisk(ctx context.Context, key string) (*risk.Score, error) {
	var score risk.Score
	found, err := c.get(ctx, riskKey(key), &score)
	if err != nil || !found {
		return nil, err
	}
	return &score, nil
}

func (c *RedisCache) SetRisk(ctx context.Context, key string, score risk.Score) error {
	return c.set(ctx, riskKey(key), score, c.riskTTL)
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func seatsKey() string {
	return "cache:seats"
}

func riskKey(key string) string {
	return "cache:risk:" + key
}
