package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"productcatalog/catalog-service/internal/app/catalog/entity"
	"productcatalog/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

const categoriesCacheKey = "catalog:categories"

// NewRedisClient подключается к Redis и проверяет соединение
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// RedisCategoryCache хранит список категорий одним JSON значением
type RedisCategoryCache struct {
	client *redis.Client
}

func NewRedisCategoryCache(client *redis.Client) *RedisCategoryCache {
	return &RedisCategoryCache{client: client}
}

func (r *RedisCategoryCache) SetCategories(ctx context.Context, categories []entity.CategorySummary, ttl time.Duration) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	if err := r.client.Set(ctx, categoriesCacheKey, data, ttl).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to set categories in cache: %w", err)
	}

	return nil
}

func (r *RedisCategoryCache) GetCategories(ctx context.Context) ([]entity.CategorySummary, error) {
	data, err := r.client.Get(ctx, categoriesCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(serviceName, categoriesCacheKey)
			return nil, nil
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return nil, fmt.Errorf("failed to get categories from cache: %w", err)
	}

	var categories []entity.CategorySummary
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
	}

	metrics.RecordCacheHit(serviceName, categoriesCacheKey)
	return categories, nil
}

func (r *RedisCategoryCache) DeleteCategories(ctx context.Context) error {
	if err := r.client.Del(ctx, categoriesCacheKey).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpDel)
		return fmt.Errorf("failed to delete categories from cache: %w", err)
	}
	return nil
}
