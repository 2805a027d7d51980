package world

import (
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
)

// OverviewCell клетка обзорной карты: группа cellSize x cellSize чанков
type OverviewCell struct {
	X, Y     int
	Dominant tile.ID // самый частый непустой тайл Ground среди загруженных чанков группы
	Chunks   int     // сколько чанков группы загружено
}

// Overview строит обзорную карту по загруженным чанкам. Чанки группируются
// делением с округлением вниз, так что (-1,-1) и (0,0) попадают в разные клетки.
func Overview(m *Manager, cellSize int) []OverviewCell {
	if cellSize <= 0 {
		cellSize = 4
	}
	type acc struct {
		counts map[tile.ID]int
		chunks int
	}
	cells := make(map[vec.Vec2]*acc)
	for _, c := range m.Coords() {
		lc, _ := m.Get(c)
		key := vec.Vec2{X: vec.FloorDiv(int(c.X), cellSize), Y: vec.FloorDiv(int(c.Y), cellSize)}
		a, ok := cells[key]
		if !ok {
			a = &acc{counts: make(map[tile.ID]int)}
			cells[key] = a
		}
		a.chunks++
		for _, id := range lc.Data.Layer(tile.Ground) {
			if id != tile.Empty {
				a.counts[id]++
			}
		}
	}

	out := make([]OverviewCell, 0, len(cells))
	for key, a := range cells {
		cell := OverviewCell{X: key.X, Y: key.Y, Chunks: a.chunks}
		best := 0
		for id, n := range a.counts {
			// При равенстве выигрывает меньший ID, чтобы результат не зависел от обхода map
			if n > best || (n == best && id < cell.Dominant) {
				best, cell.Dominant = n, id
			}
		}
		out = append(out, cell)
	}
	sortCells(out)
	return out
}

func sortCells(cells []OverviewCell) {
	coords := make([]ChunkCoord, len(cells))
	idx := make(map[ChunkCoord]OverviewCell, len(cells))
	for i, c := range cells {
		coords[i] = ChunkCoord{X: int32(c.X), Y: int32(c.Y)}
		idx[coords[i]] = c
	}
	SortCoords(coords)
	for i, c := range coords {
		cells[i] = idx[c]
	}
}
