package store

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores records as plain Redis strings. The quota is the
// server's maxmemory setting; OOM replies surface as ErrQuotaExceeded.
type RedisBackend struct {
	client *redis.Client
}

var _ Backend = (*RedisBackend)(nil)

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Join(ErrUnavailable, err)
	}
	return &RedisBackend{client: client}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return v, err
}

func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	err := r.client.Set(ctx, key, value, 0).Err()
	if err != nil && strings.HasPrefix(err.Error(), "OOM") {
		return ErrQuotaExceeded
	}
	return err
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func escapeGlob(s string) string {
	return strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`).Replace(s)
}
