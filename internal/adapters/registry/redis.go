package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/twobeats/worldcup/internal/domain/model"
)

const defaultKeyPrefix = "worldcup:bracket:"

// Redis is a Registry shared by every replica, with expiry delegated to Redis.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ Registry = (*Redis)(nil)

// NewRedis connects to url and verifies the connection.
func NewRedis(ctx context.Context, url, prefix string) (*Redis, error) {
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisWithClient(client, prefix), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(id string) string { return r.prefix + id }

func (r *Redis) Put(ctx context.Context, spec model.BracketSpec, ttl time.Duration) error {
	data, err := encodeSpec(spec)
	if err != nil {
		return fmt.Errorf("encode bracket %s: %w", spec.ID, err)
	}
	ok, err := r.client.SetNX(ctx, r.key(spec.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("put bracket %s: %w", spec.ID, err)
	}
	if !ok {
		return fmt.Errorf("bracket %s: %w", spec.ID, ErrExists)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (model.BracketSpec, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.BracketSpec{}, fmt.Errorf("bracket %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.BracketSpec{}, fmt.Errorf("get bracket %s: %w", id, err)
	}
	return decodeSpec(data)
}

func (r *Redis) Close() error {
	return r.client.Close()
}
