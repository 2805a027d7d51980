package storage

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/world"
)

// CachedStore кеш чтения поверх медленного хранилища (Redis, диск).
// Запись идёт сразу в хранилище и обновляет кеш.
type CachedStore struct {
	Store
	cache       *ristretto.Cache[string, []byte]
	invalidator Invalidator
	log         *logging.Logger
}

// NewCachedStore создаёт кеш ёмкостью maxBytes
func NewCachedStore(inner Store, maxBytes int64) (*CachedStore, error) {
	if maxBytes <= 0 {
		maxBytes = 64 * 1024 * 1024
	}
	cache, err := ristretto.NewCache[string, []byte](&ristretto.Config[string, []byte]{
		NumCounters: 10000,
		MaxCost:     maxBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания кеша: %w", err)
	}
	return &CachedStore{Store: inner, cache: cache, log: logging.GetStorageLogger()}, nil
}

// SetInvalidator подключает рассылку изменений между узлами, которые делят
// одно хранилище. Чужие записи сбрасывают запись кеша.
func (s *CachedStore) SetInvalidator(inv Invalidator) error {
	if err := inv.Subscribe(s.forget); err != nil {
		return err
	}
	s.invalidator = inv
	return nil
}

func (s *CachedStore) forget(c world.ChunkCoord) {
	s.cache.Del(chunkKey(c))
	s.cache.Wait()
}

func (s *CachedStore) publish(ctx context.Context, c world.ChunkCoord) {
	if s.invalidator == nil {
		return
	}
	// Запись уже в хранилище, ошибка рассылки только логируется
	if err := s.invalidator.Publish(ctx, c); err != nil {
		s.log.Warn("Не удалось разослать изменение чанка %s: %v", c, err)
	}
}

func (s *CachedStore) Get(ctx context.Context, c world.ChunkCoord) ([]byte, error) {
	key := chunkKey(c)
	if b, ok := s.cache.Get(key); ok {
		return append([]byte(nil), b...), nil
	}
	b, err := s.Store.Get(ctx, c)
	if err != nil {
		return nil, err
	}
	s.remember(key, b)
	return b, nil
}

func (s *CachedStore) Put(ctx context.Context, c world.ChunkCoord, data []byte) error {
	if err := s.Store.Put(ctx, c, data); err != nil {
		s.cache.Del(chunkKey(c))
		return err
	}
	s.remember(chunkKey(c), data)
	s.publish(ctx, c)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, c world.ChunkCoord) error {
	s.forget(c)
	if err := s.Store.Delete(ctx, c); err != nil {
		return err
	}
	s.publish(ctx, c)
	return nil
}

func (s *CachedStore) remember(key string, b []byte) {
	s.cache.Set(key, append([]byte(nil), b...), int64(len(b)))
	s.cache.Wait()
}

// Metrics счётчики попаданий кеша
func (s *CachedStore) Metrics() *ristretto.Metrics {
	return s.cache.Metrics
}

func (s *CachedStore) Close() error {
	if s.invalidator != nil {
		_ = s.invalidator.Close()
	}
	s.cache.Close()
	return s.Store.Close()
}
