package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/tileworld/internal/world"
)

// ErrKeyNotFound в хранилище нет записи для чанка
var ErrKeyNotFound = errors.New("key not found")

// Store хранилище сырых записей чанков
type Store interface {
	Get(ctx context.Context, c world.ChunkCoord) ([]byte, error)
	Put(ctx context.Context, c world.ChunkCoord, data []byte) error
	Delete(ctx context.Context, c world.ChunkCoord) error
	Has(ctx context.Context, c world.ChunkCoord) (bool, error)
	Coords(ctx context.Context) ([]world.ChunkCoord, error)
	Close() error
}

// chunkKey ключ чанка для KV-хранилищ
func chunkKey(c world.ChunkCoord) string {
	return fmt.Sprintf("chunk:%d:%d", c.X, c.Y)
}

// parseChunkKey обратное преобразование chunkKey
func parseChunkKey(key string) (world.ChunkCoord, bool) {
	var c world.ChunkCoord
	if _, err := fmt.Sscanf(key, "chunk:%d:%d", &c.X, &c.Y); err != nil {
		return c, false
	}
	return c, chunkKey(c) == key
}
