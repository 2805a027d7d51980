package world

import "github.com/annel0/tileworld/internal/tile"

// Handle непрозрачная ссылка на визуальный слой чанка. Нулевое значение недействительно.
type Handle uint64

// Renderer визуальная сторона мира. Ядро не знает о конкретном движке отрисовки.
type Renderer interface {
	// SpawnLayer создаёт визуальный слой чанка с начальными тайлами (построчно, width в ширину)
	SpawnLayer(coord ChunkCoord, layer tile.Layer, depth float64, width int, tiles []tile.ID) Handle
	// UpdateTile меняет одну клетку уже созданного слоя
	UpdateTile(h Handle, x, y int, id tile.ID)
	// Despawn удаляет слой
	Despawn(h Handle)
}

// TileEditor источник изменений тайлов: поведения, инструменты, отладочный API.
// Изменение ставится в очередь и применяется на ближайшем шаге мира.
type TileEditor interface {
	QueueTileModification(worldX, worldY float64, id tile.ID, layer tile.Layer)
}
