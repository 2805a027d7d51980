package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/world"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей, отделяет миры друг от друга
	TTL       time.Duration // 0 - без срока жизни
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "tileworld:",
	}
}

// RedisStore хранит записи чанков в Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore подключается и проверяет соединение
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logging.GetStorageLogger().Info("🔴 Connected to Redis at %s", cfg.Addr)
	return &RedisStore{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

func (s *RedisStore) key(c world.ChunkCoord) string {
	return s.prefix + chunkKey(c)
}

func (s *RedisStore) Get(ctx context.Context, c world.ChunkCoord) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key(c)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	return b, err
}

func (s *RedisStore) Put(ctx context.Context, c world.ChunkCoord, data []byte) error {
	return s.client.Set(ctx, s.key(c), data, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, c world.ChunkCoord) error {
	return s.client.Del(ctx, s.key(c)).Err()
}

func (s *RedisStore) Has(ctx context.Context, c world.ChunkCoord) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(c)).Result()
	return n > 0, err
}

// Coords обходит ключи через SCAN, без блокировки сервера
func (s *RedisStore) Coords(ctx context.Context) ([]world.ChunkCoord, error) {
	var out []world.ChunkCoord
	iter := s.client.Scan(ctx, 0, s.prefix+"chunk:*", 256).Iterator()
	for iter.Next(ctx) {
		if c, ok := parseChunkKey(strings.TrimPrefix(iter.Val(), s.prefix)); ok {
			out = append(out, c)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	world.SortCoords(out)
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
