package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"audioswarm/searchservice/internal/domain"
)

const redisCacheKeyPrefix = "aswarm:cache:"

// RedisCacheBackend stores search responses in Redis so replicas can
// share results between restarts.
type RedisCacheBackend struct {
	client *redis.Client
}

func NewRedisCacheBackend(client *redis.Client) *RedisCacheBackend {
	return &RedisCacheBackend{client: client}
}

func (b *RedisCacheBackend) Get(ctx context.Context, key string) (domain.SearchResponse, bool, error) {
	payload, err := b.client.Get(ctx, redisCacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SearchResponse{}, false, nil
	}
	if err != nil {
		return domain.SearchResponse{}, false, fmt.Errorf("redis get: %w", err)
	}

	var response domain.SearchResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return domain.SearchResponse{}, false, fmt.Errorf("decode cached response: %w", err)
	}
	return response, true, nil
}

func (b *RedisCacheBackend) Set(ctx context.Context, key string, response domain.SearchResponse, ttl time.Duration) error {
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode cached response: %w", err)
	}
	if err := b.client.Set(ctx, redisCacheKeyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (b *RedisCacheBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, redisCacheKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (b *RedisCacheBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
