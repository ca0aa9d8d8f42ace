package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bag2go/bag2go/config"
	"github.com/bag2go/bag2go/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	ordersTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ordersTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ordersTTL: ordersTTL,
	}
}

// AcquireDispatchLock takes the per-order mutual-exclusion token guarding
// manifest dispatch. Returns false when another handler holds it.
func (c *RedisCache) AcquireDispatchLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, dispatchLockKey(orderID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseDispatchLock(ctx context.Context, orderID string) error {
	return c.client.Del(ctx, dispatchLockKey(orderID)).Err()
}

func (c *RedisCache) GetUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	data, err := c.client.Get(ctx, userOrdersKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var orders []domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *RedisCache) SetUserOrders(ctx context.Context, userID string, orders []domain.Order) error {
	payload, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, userOrdersKey(userID), payload, c.ordersTTL).Err()
}

func (c *RedisCache) InvalidateUserOrders(ctx context.Context, userID string) error {
	return c.client.Del(ctx, userOrdersKey(userID)).Err()
}

func dispatchLockKey(orderID string) string {
	return fmt.Sprintf("lock:dispatch:%s", orderID)
}

func userOrdersKey(userID string) string {
	return fmt.Sprintf("cache:orders:%s", userID)
}
