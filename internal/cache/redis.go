package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quochiep16/mini-e/internal/model"
	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *RedisCache) Get(ctx context.Context, shopID uint) (*model.Shop, error) {
	data, err := r.client.Get(ctx, shopKey(shopID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var shop model.Shop
	if err := json.Unmarshal(data, &shop); err != nil {
		return nil, fmt.Errorf("unmarshal shop failed: %w", err)
	}
	return &shop, nil
}

func (r *RedisCache) Set(ctx context.Context, shop *model.Shop) error {
	data, err := json.Marshal(shop)
	if err != nil {
		return fmt.Errorf("marshal shop failed: %w", err)
	}

	if err := r.client.Set(ctx, shopKey(shop.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, shopID uint) error {
	if err := r.client.Del(ctx, shopKey(shopID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func shopKey(shopID uint) string {
	return fmt.Sprintf("shop:%d", shopID)
}
