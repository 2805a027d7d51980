package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/annel0/tileworld/internal/world"
)

// ManifestFile имя файла описания мира
const ManifestFile = "world.yaml"

// Manifest описание сохранённого мира
type Manifest struct {
	WorldID     string    `yaml:"world_id"`
	Seed        int64     `yaml:"seed"`
	Generator   string    `yaml:"generator"`
	ChunkWidth  int       `yaml:"chunk_width"`
	ChunkHeight int       `yaml:"chunk_height"`
	TileSize    float64   `yaml:"tile_size"`
	Format      uint16    `yaml:"format"`
	Backend     string    `yaml:"backend"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// Geometry геометрия мира из манифеста
func (m Manifest) Geometry() world.Geometry {
	return world.Geometry{ChunkWidth: m.ChunkWidth, ChunkHeight: m.ChunkHeight, TileSize: m.TileSize}
}

// ReadManifest читает world.yaml из каталога мира
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("ошибка разбора %s: %w", ManifestFile, err)
	}
	return m, nil
}

// WriteManifest записывает world.yaml
func WriteManifest(dir string, m Manifest) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	b, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), b, 0644)
}

// LoadOrCreateManifest открывает существующий мир или создаёт новый по шаблону.
// Мир с другим размером чанка не открывается: его записи не прочитать.
// Сид существующего мира имеет приоритет над шаблоном.
func LoadOrCreateManifest(dir string, want Manifest) (Manifest, bool, error) {
	m, err := ReadManifest(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if want.WorldID == "" {
			want.WorldID = uuid.NewString()
		}
		if want.CreatedAt.IsZero() {
			want.CreatedAt = time.Now().UTC()
		}
		if want.Format == 0 {
			want.Format = FormatV2
		}
		if err := WriteManifest(dir, want); err != nil {
			return want, false, fmt.Errorf("ошибка записи манифеста: %w", err)
		}
		return want, true, nil
	}
	if err != nil {
		return m, false, err
	}
	if m.ChunkWidth != want.ChunkWidth || m.ChunkHeight != want.ChunkHeight {
		return m, false, fmt.Errorf("мир %s создан с чанками %dx%d, запрошено %dx%d",
			m.WorldID, m.ChunkWidth, m.ChunkHeight, want.ChunkWidth, want.ChunkHeight)
	}
	return m, false, nil
}
