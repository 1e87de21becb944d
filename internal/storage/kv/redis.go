// redis.go — хранилище в Redis. Ключи хранятся с пространством имён.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisOptions — параметры подключения к Redis.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Namespace string // префикс ключей, например "weldregistry:"
}

// RedisStore — хранилище в Redis.
type RedisStore struct {
	rdb *redis.Client
	ns  string
}

// NewRedis подключается к Redis и проверяет доступность через PING.
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis %s: %w", opts.Addr, err)
	}
	return &RedisStore{rdb: rdb, ns: opts.Namespace}, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.ns+key, value, 0).Err(); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, r.ns+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.ns+key).Err(); err != nil {
		return fmt.Errorf("ошибка удаления %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	iter := r.rdb.Scan(ctx, 0, escapeGlob(r.ns+prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.ns))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("ошибка сканирования ключей: %w", err)
	}
	return sortedKeys(keys), nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

// escapeGlob экранирует спецсимволы шаблона SCAN MATCH.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
