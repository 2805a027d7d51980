package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/annel0/tileworld/internal/world"
)

// FileStore один файл на чанк: <dir>/chunks/chunk_<x>_<y>.bin
type FileStore struct {
	dir string
}

// NewFileStore создаёт каталог chunks при необходимости
func NewFileStore(dir string) (*FileStore, error) {
	chunks := filepath.Join(dir, "chunks")
	if err := os.MkdirAll(chunks, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию %s: %w", chunks, err)
	}
	return &FileStore{dir: chunks}, nil
}

// Path путь к файлу чанка
func (s *FileStore) Path(c world.ChunkCoord) string {
	return filepath.Join(s.dir, fmt.Sprintf("chunk_%d_%d.bin", c.X, c.Y))
}

func (s *FileStore) Get(_ context.Context, c world.ChunkCoord) ([]byte, error) {
	b, err := os.ReadFile(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	return b, err
}

// Put пишет во временный файл и переименовывает, чтобы не оставлять обрезанных записей
func (s *FileStore) Put(_ context.Context, c world.ChunkCoord, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".chunk-*.tmp")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи чанка %s: %w", c, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи чанка %s: %w", c, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path(c))
}

func (s *FileStore) Delete(_ context.Context, c world.ChunkCoord) error {
	err := os.Remove(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) Has(_ context.Context, c world.ChunkCoord) (bool, error) {
	_, err := os.Stat(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *FileStore) Coords(_ context.Context) ([]world.ChunkCoord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []world.ChunkCoord
	for _, e := range entries {
		var c world.ChunkCoord
		if e.IsDir() {
			continue
		}
		if _, err := fmt.Sscanf(e.Name(), "chunk_%d_%d.bin", &c.X, &c.Y); err != nil {
			continue
		}
		if filepath.Base(s.Path(c)) != e.Name() {
			continue
		}
		out = append(out, c)
	}
	world.SortCoords(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }
