package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/tileworld/internal/world"
)

// Сигнатура кадра zstd
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// CompressedStore сжимает записи zstd поверх другого хранилища.
// Несжатые записи (сохранённые без обёртки) читаются как есть.
type CompressedStore struct {
	Store
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

// NewCompressedStore оборачивает хранилище
func NewCompressedStore(inner Store) (*CompressedStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	return &CompressedStore{Store: inner, compressor: enc, decompressor: dec}, nil
}

func (s *CompressedStore) Get(ctx context.Context, c world.ChunkCoord) ([]byte, error) {
	b, err := s.Store.Get(ctx, c)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(b, zstdMagic) {
		return b, nil
	}
	out, err := s.decompressor.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", world.ErrCorruptChunk, err)
	}
	return out, nil
}

func (s *CompressedStore) Put(ctx context.Context, c world.ChunkCoord, data []byte) error {
	return s.Store.Put(ctx, c, s.compressor.EncodeAll(data, nil))
}

func (s *CompressedStore) Close() error {
	s.decompressor.Close()
	err := s.compressor.Close()
	if innerErr := s.Store.Close(); innerErr != nil {
		return innerErr
	}
	return err
}
