package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storemirror/internal/config"

	"github.com/redis/go-redis/v9"
)

const deadLetterKey = "sync:deadletter"

type RedisCursorRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisCursorRepository(client *redis.Client, ttl time.Duration) *RedisCursorRepository {
	return &RedisCursorRepository{client: client, ttl: ttl}
}

func cursorKey(collection string) string {
	return fmt.Sprintf("sync:cursor:%s", collection)
}

func (r *RedisCursorRepository) GetCursor(ctx context.Context, collection string) (*Cursor, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, cursorKey(collection)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cursor from redis: %w", err)
	}

	var cursor Cursor
	if err := json.Unmarshal([]byte(val), &cursor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cursor: %w", err)
	}
	return &cursor, nil
}

func (r *RedisCursorRepository) SetCursor(ctx context.Context, cursor *Cursor) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}
	if err := r.client.Set(ctx, cursorKey(cursor.Collection), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cursor in redis: %w", err)
	}
	return nil
}

func (r *RedisCursorRepository) ClearCursor(ctx context.Context, collection string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, cursorKey(collection)).Err(); err != nil {
		return fmt.Errorf("failed to delete cursor from redis: %w", err)
	}
	return nil
}

// PushDeadLetter appends a failed task snapshot to the dead letter list.
func (r *RedisCursorRepository) PushDeadLetter(ctx context.Context, payload []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return r.client.LPush(ctx, deadLetterKey, payload).Err()
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
