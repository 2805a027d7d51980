package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/annel0/tileworld/internal/vec"
)

// ChunkCoord координаты чанка в сетке чанков
type ChunkCoord struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// String возвращает "(x,y)"
func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Vec2 переводит координаты в vec.Vec2
func (c ChunkCoord) Vec2() vec.Vec2 {
	return vec.Vec2{X: int(c.X), Y: int(c.Y)}
}

// Chebyshev расстояние до другого чанка. Именно оно задаёт радиусы загрузки.
func (c ChunkCoord) Chebyshev(other ChunkCoord) int {
	return c.Vec2().Chebyshev(other.Vec2())
}

// Manhattan расстояние до другого чанка
func (c ChunkCoord) Manhattan(other ChunkCoord) int {
	return c.Vec2().Manhattan(other.Vec2())
}

// InRadius возвращает квадрат (2r+1)^2 координат вокруг c, построчно
func (c ChunkCoord) InRadius(r int) []ChunkCoord {
	if r < 0 {
		return nil
	}
	out := make([]ChunkCoord, 0, (2*r+1)*(2*r+1))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			out = append(out, ChunkCoord{X: c.X + int32(dx), Y: c.Y + int32(dy)})
		}
	}
	return out
}

// SortCoords сортирует по Y, затем по X
func SortCoords(coords []ChunkCoord) {
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
}

// Geometry размеры чанка и тайла. Вся конверсия мир <-> чанк идёт через неё.
type Geometry struct {
	ChunkWidth  int     // тайлов по X
	ChunkHeight int     // тайлов по Y
	TileSize    float64 // размер тайла в мировых единицах
}

// Значения по умолчанию: 32x32 тайла по 8 единиц, 256 единиц на чанк
const (
	DefaultChunkSize = 32
	DefaultTileSize  = 8.0
)

// DefaultGeometry геометрия по умолчанию
func DefaultGeometry() Geometry {
	return Geometry{ChunkWidth: DefaultChunkSize, ChunkHeight: DefaultChunkSize, TileSize: DefaultTileSize}
}

// Validate проверяет, что размеры положительны
func (g Geometry) Validate() error {
	if g.ChunkWidth <= 0 || g.ChunkHeight <= 0 {
		return fmt.Errorf("размер чанка должен быть положительным: %dx%d", g.ChunkWidth, g.ChunkHeight)
	}
	if g.ChunkWidth > math.MaxUint16 || g.ChunkHeight > math.MaxUint16 {
		return fmt.Errorf("размер чанка слишком большой: %dx%d", g.ChunkWidth, g.ChunkHeight)
	}
	if g.TileSize <= 0 {
		return fmt.Errorf("размер тайла должен быть положительным: %v", g.TileSize)
	}
	return nil
}

// TilesPerChunk количество тайлов в одном слое
func (g Geometry) TilesPerChunk() int {
	return g.ChunkWidth * g.ChunkHeight
}

// ChunkPixelWidth ширина чанка в мировых единицах
func (g Geometry) ChunkPixelWidth() float64 {
	return float64(g.ChunkWidth) * g.TileSize
}

// ChunkPixelHeight высота чанка в мировых единицах
func (g Geometry) ChunkPixelHeight() float64 {
	return float64(g.ChunkHeight) * g.TileSize
}

// WorldToTile глобальные координаты тайла, округление вниз
func (g Geometry) WorldToTile(p vec.Vec2Float) vec.Vec2 {
	return vec.Vec2Float{X: p.X / g.TileSize, Y: p.Y / g.TileSize}.Floor()
}

// WorldToChunk чанк, содержащий мировую точку
func (g Geometry) WorldToChunk(p vec.Vec2Float) ChunkCoord {
	t := g.WorldToTile(p)
	return ChunkCoord{
		X: int32(vec.FloorDiv(t.X, g.ChunkWidth)),
		Y: int32(vec.FloorDiv(t.Y, g.ChunkHeight)),
	}
}

// WorldToLocal чанк и локальный тайл для мировой точки. Для (-8,-8) при
// размере 32 и тайле 8 это чанк (-1,-1), тайл (31,31).
func (g Geometry) WorldToLocal(p vec.Vec2Float) (ChunkCoord, int, int) {
	t := g.WorldToTile(p)
	c := ChunkCoord{
		X: int32(vec.FloorDiv(t.X, g.ChunkWidth)),
		Y: int32(vec.FloorDiv(t.Y, g.ChunkHeight)),
	}
	return c, vec.Mod(t.X, g.ChunkWidth), vec.Mod(t.Y, g.ChunkHeight)
}

// ChunkOrigin мировые координаты левого нижнего угла чанка
func (g Geometry) ChunkOrigin(c ChunkCoord) vec.Vec2Float {
	return vec.Vec2Float{X: float64(c.X) * g.ChunkPixelWidth(), Y: float64(c.Y) * g.ChunkPixelHeight()}
}

// TileCenter мировые координаты центра тайла (x, y) чанка c
func (g Geometry) TileCenter(c ChunkCoord, x, y int) vec.Vec2Float {
	o := g.ChunkOrigin(c)
	return vec.Vec2Float{
		X: o.X + (float64(x)+0.5)*g.TileSize,
		Y: o.Y + (float64(y)+0.5)*g.TileSize,
	}
}
