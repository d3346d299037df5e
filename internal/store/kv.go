package store

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// SettingsStore 设置的键值存储（字符串值）
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	RemoveMany(ctx context.Context, keys []string) error
}

// RedisSettingsStore 基于 go-redis 的实现，每个用户一个 key 前缀
type RedisSettingsStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSettingsStore 创建 Redis 设置存储，key 形如 glup:<user>:settings:<key>
func NewRedisSettingsStore(client *redis.Client, userID string) *RedisSettingsStore {
	return &RedisSettingsStore{
		client: client,
		prefix: fmt.Sprintf("glup:%s:settings:", userID),
	}
}

func (r *RedisSettingsStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisSettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return val, true, nil
}

func (r *RedisSettingsStore) Set(ctx context.Context, key string, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// SetMany 一次 MSET 写入多个键
func (r *RedisSettingsStore) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	pairs := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, r.key(k), v)
	}
	if err := r.client.MSet(ctx, pairs...).Err(); err != nil {
		return fmt.Errorf("failed to set settings: %w", err)
	}
	return nil
}

func (r *RedisSettingsStore) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to remove settings: %w", err)
	}
	return nil
}
