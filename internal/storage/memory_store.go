package storage

import (
	"context"
	"sync"

	"github.com/annel0/tileworld/internal/world"
)

// MemoryStore хранилище в памяти для тестов и временных миров
type MemoryStore struct {
	mu   sync.RWMutex
	data map[world.ChunkCoord][]byte
}

// NewMemoryStore создаёт пустое хранилище
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[world.ChunkCoord][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, c world.ChunkCoord) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[c]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *MemoryStore) Put(_ context.Context, c world.ChunkCoord, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, c world.ChunkCoord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, c)
	return nil
}

func (s *MemoryStore) Has(_ context.Context, c world.ChunkCoord) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[c]
	return ok, nil
}

func (s *MemoryStore) Coords(_ context.Context) ([]world.ChunkCoord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]world.ChunkCoord, 0, len(s.data))
	for c := range s.data {
		out = append(out, c)
	}
	world.SortCoords(out)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
