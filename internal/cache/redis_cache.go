package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
)

type RedisStockCache struct {
	client *redis.Client
}

func NewRedisStockCache(addr string, password string, db int) *RedisStockCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStockCache{client: client}
}

func (c *RedisStockCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStockCache) Close() error {
	return c.client.Close()
}

func (c *RedisStockCache) GetLowStock(ctx context.Context, key string) ([]domain.StockLevel, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var levels []domain.StockLevel
	if err := json.Unmarshal([]byte(val), &levels); err != nil {
		return nil, false, err
	}
	return levels, true, nil
}

func (c *RedisStockCache) SetLowStock(ctx context.Context, key string, levels []domain.StockLevel, ttl time.Duration) error {
	if levels == nil {
		levels = []domain.StockLevel{}
	}
	payload, err := json.Marshal(levels)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisStockCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
