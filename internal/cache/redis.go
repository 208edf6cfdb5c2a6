package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/airbroker/config"
	"github.com/Domenick1991/airbroker/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	scheduleTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, scheduleTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(
		redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		scheduleTTL,
	)
}

func NewRedisCacheWithClient(client *redis.Client, scheduleTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, scheduleTTL: scheduleTTL}
}

// GetSchedule returns nil, nil on a miss.
func (c *RedisCache) GetSchedule(ctx context.Context, key string) (*domain.ScheduleResult, error) {
	data, err := c.client.Get(ctx, scheduleKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var result domain.ScheduleResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *RedisCache) SetSchedule(ctx context.Context, key string, result *domain.ScheduleResult) error {
	if c.scheduleTTL <= 0 {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey(key), payload, c.scheduleTTL).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func scheduleKey(key string) string {
	return "cache:schedule:" + key
}
