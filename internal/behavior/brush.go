package behavior

import (
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// Brush рисует квадрат тайлов вокруг точки (инструмент покраски ландшафта)
type Brush struct {
	Tile     tile.ID
	Layer    tile.Layer
	Radius   int     // в тайлах, 0 - одна клетка
	TileSize float64 // размер тайла в мировых единицах
}

// Paint ставит в очередь (2r+1)^2 изменений. Возвращает их количество.
func (b Brush) Paint(editor world.TileEditor, center vec.Vec2Float) int {
	n := 0
	for dy := -b.Radius; dy <= b.Radius; dy++ {
		for dx := -b.Radius; dx <= b.Radius; dx++ {
			editor.QueueTileModification(
				center.X+float64(dx)*b.TileSize,
				center.Y+float64(dy)*b.TileSize,
				b.Tile, b.Layer)
			n++
		}
	}
	return n
}
