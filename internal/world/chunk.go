package world

import (
	"fmt"

	"github.com/annel0/tileworld/internal/tile"
)

// FormatVersion текущая версия формата чанка в памяти и на диске
const FormatVersion uint16 = 2

// Origin откуда появились данные чанка
type Origin uint8

const (
	OriginGenerated Origin = iota // сгенерирован
	OriginStored                  // прочитан из хранилища в текущем формате
	OriginUpgraded                // прочитан из старого формата и преобразован
)

// String возвращает имя источника
func (o Origin) String() string {
	switch o {
	case OriginGenerated:
		return "generated"
	case OriginStored:
		return "stored"
	case OriginUpgraded:
		return "upgraded"
	default:
		return "unknown"
	}
}

// ChunkData тайлы одного чанка по всем слоям. Слой хранится построчно:
// индекс y*Width + x.
//
// ChunkData не защищён мьютексом: им владеет один поток шага мира.
type ChunkData struct {
	Coord  ChunkCoord
	Width  int
	Height int
	Format uint16
	Origin Origin

	layers [tile.MaxLayers][]tile.ID
	dirty  bool
}

// NewChunkData создаёт чанк, заполненный tile.Empty во всех слоях
func NewChunkData(coord ChunkCoord, width, height int) *ChunkData {
	c := &ChunkData{
		Coord:  coord,
		Width:  width,
		Height: height,
		Format: FormatVersion,
	}
	for l := range c.layers {
		c.layers[l] = make([]tile.ID, width*height)
	}
	return c
}

func (c *ChunkData) index(layer tile.Layer, x, y int) (int, error) {
	if !layer.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLayer, layer)
	}
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0, fmt.Errorf("%w: (%d,%d) in %dx%d", ErrOutOfBounds, x, y, c.Width, c.Height)
	}
	return y*c.Width + x, nil
}

// GetTile возвращает тайл слоя в локальных координатах
func (c *ChunkData) GetTile(layer tile.Layer, x, y int) (tile.ID, error) {
	i, err := c.index(layer, x, y)
	if err != nil {
		return tile.Empty, err
	}
	return c.layers[layer][i], nil
}

// SetTile записывает тайл и помечает чанк изменённым. При ошибке состояние не меняется.
func (c *ChunkData) SetTile(layer tile.Layer, x, y int, id tile.ID) error {
	i, err := c.index(layer, x, y)
	if err != nil {
		return err
	}
	c.layers[layer][i] = id
	c.dirty = true
	return nil
}

// Fill заполняет слой одним тайлом
func (c *ChunkData) Fill(layer tile.Layer, id tile.ID) error {
	if !layer.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLayer, layer)
	}
	for i := range c.layers[layer] {
		c.layers[layer][i] = id
	}
	c.dirty = true
	return nil
}

// Layer возвращает срез слоя. Вызывающий не должен его менять.
func (c *ChunkData) Layer(layer tile.Layer) []tile.ID {
	if !layer.Valid() {
		return nil
	}
	return c.layers[layer]
}

// SetLayer заменяет слой целиком, длина должна быть Width*Height. Флаг dirty не трогает:
// используется загрузчиками и генераторами.
func (c *ChunkData) SetLayer(layer tile.Layer, tiles []tile.ID) error {
	if !layer.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidLayer, layer)
	}
	if len(tiles) != c.Width*c.Height {
		return fmt.Errorf("%w: слой %s содержит %d тайлов, ожидалось %d",
			ErrCorruptChunk, layer, len(tiles), c.Width*c.Height)
	}
	copy(c.layers[layer], tiles)
	return nil
}

// IsDirty есть ли несохранённые изменения
func (c *ChunkData) IsDirty() bool {
	return c.dirty
}

// MarkClean сбрасывает флаг изменений. Вызывать только после успешного сохранения.
func (c *ChunkData) MarkClean() {
	c.dirty = false
}

// Count количество тайлов id в слое
func (c *ChunkData) Count(layer tile.Layer, id tile.ID) int {
	n := 0
	for _, t := range c.Layer(layer) {
		if t == id {
			n++
		}
	}
	return n
}

// Clone глубокая копия
func (c *ChunkData) Clone() *ChunkData {
	cp := *c
	for l := range c.layers {
		cp.layers[l] = append([]tile.ID(nil), c.layers[l]...)
	}
	return &cp
}

// Equal сравнивает координаты, размеры и содержимое слоёв
func (c *ChunkData) Equal(other *ChunkData) bool {
	if other == nil || c.Coord != other.Coord || c.Width != other.Width || c.Height != other.Height {
		return false
	}
	for l := range c.layers {
		a, b := c.layers[l], other.layers[l]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	}
	return true
}
