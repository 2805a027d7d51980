package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/world"
)

// ChunkStore сериализует чанки и кладёт их в Store.
// Реализует world.ChunkPersister.
type ChunkStore struct {
	codec Codec
	store Store
	log   *logging.Logger
}

var _ world.ChunkPersister = (*ChunkStore)(nil)

// NewChunkStore создаёт хранилище чанков
func NewChunkStore(codec Codec, store Store) *ChunkStore {
	return &ChunkStore{codec: codec, store: store, log: logging.GetStorageLogger()}
}

// Backend нижележащее хранилище
func (s *ChunkStore) Backend() Store {
	return s.store
}

// Load читает и декодирует чанк
func (s *ChunkStore) Load(ctx context.Context, c world.ChunkCoord) (*world.ChunkData, error) {
	b, err := s.store.Get(ctx, c)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", world.ErrChunkNotFound, c)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение чанка %s: %w", c, err)
	}

	data, h, err := s.codec.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("чанк %s: %w", c, err)
	}
	if h.Coord != c {
		return nil, fmt.Errorf("%w: запись для %s содержит координаты %s", world.ErrCorruptChunk, c, h.Coord)
	}
	return data, nil
}

// Save кодирует и записывает чанк. Флаг dirty не сбрасывает.
func (s *ChunkStore) Save(ctx context.Context, c world.ChunkCoord, data *world.ChunkData) error {
	if data.Coord != c {
		return fmt.Errorf("чанк %s сохраняется под координатами %s", data.Coord, c)
	}
	b, err := s.codec.Encode(data)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, c, b); err != nil {
		return fmt.Errorf("запись чанка %s: %w", c, err)
	}
	s.log.Trace("Сохранён чанк %s (%d байт)", c, len(b))
	return nil
}

// Exists есть ли запись для чанка
func (s *ChunkStore) Exists(ctx context.Context, c world.ChunkCoord) (bool, error) {
	return s.store.Has(ctx, c)
}

// Delete удаляет запись, отсутствие записи не ошибка
func (s *ChunkStore) Delete(ctx context.Context, c world.ChunkCoord) error {
	return s.store.Delete(ctx, c)
}

// Coords все сохранённые чанки
func (s *ChunkStore) Coords(ctx context.Context) ([]world.ChunkCoord, error) {
	return s.store.Coords(ctx)
}

// Upgrade перезаписывает запись старого формата в текущем. Возвращает true,
// если запись была переписана.
func (s *ChunkStore) Upgrade(ctx context.Context, c world.ChunkCoord) (bool, error) {
	data, err := s.Load(ctx, c)
	if err != nil {
		return false, err
	}
	if data.Origin != world.OriginUpgraded {
		return false, nil
	}
	if err := s.Save(ctx, c, data); err != nil {
		return false, err
	}
	s.log.Info("Чанк %s переписан в формат v%d", c, FormatV2)
	return true, nil
}
