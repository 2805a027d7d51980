package behavior

import (
	"math/rand"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// Trail оставляет за движущимся объектом след из тайлов (улитка оставляет землю).
type Trail struct {
	Tile   tile.ID
	Layer  tile.Layer
	Chance float64 // вероятность оставить тайл при каждом перемещении

	editor  world.TileEditor
	rng     *rand.Rand
	last    vec.Vec2Float
	hasLast bool
}

// NewTrail след из земли на слое Ground с вероятностью 20%
func NewTrail(editor world.TileEditor, seed int64) *Trail {
	return &Trail{
		Tile:   tile.Dirt,
		Layer:  tile.Ground,
		Chance: 0.2,
		editor: editor,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Update вызывается каждый шаг с текущей позицией. Возвращает true, если
// изменение поставлено в очередь.
func (t *Trail) Update(pos vec.Vec2Float) bool {
	moved := t.hasLast && pos != t.last
	t.last, t.hasLast = pos, true
	if !moved {
		return false
	}
	if t.rng.Float64() >= t.Chance {
		return false
	}
	t.editor.QueueTileModification(pos.X, pos.Y, t.Tile, t.Layer)
	return true
}
