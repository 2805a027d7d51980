package world

import (
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/vec"
)

// ApplyResult итог применения очереди изменений
type ApplyResult struct {
	Applied  int `json:"applied"`
	Dropped  int `json:"dropped"`
	Parked   int `json:"parked"`
	Replayed int `json:"replayed"`
}

// Pipeline применяет очередь изменений тайлов к данным чанка и к его визуальному слою
type Pipeline struct {
	geometry Geometry
	renderer Renderer
	// ParkUnloaded откладывает правки незагруженных чанков до их загрузки вместо отбрасывания
	ParkUnloaded bool
	log          *logging.Logger
}

// NewPipeline создаёт конвейер изменений
func NewPipeline(g Geometry, r Renderer) *Pipeline {
	return &Pipeline{geometry: g, renderer: r, log: logging.GetWorldLogger()}
}

// Apply сначала проигрывает отложенные правки загруженных чанков, затем
// опустошает очередь в порядке поступления. Позднее изменение той же клетки побеждает.
func (p *Pipeline) Apply(m *Manager) ApplyResult {
	var res ApplyResult

	for _, c := range m.ParkedCoords() {
		if !m.IsLoaded(c) {
			continue
		}
		for _, mod := range m.TakeParked(c) {
			if p.applyOne(m, mod) {
				res.Replayed++
				m.counters.Replayed++
			} else {
				res.Dropped++
				m.counters.Dropped++
			}
		}
	}

	for _, mod := range m.TakeTileModifications() {
		if !mod.Layer.Valid() {
			res.Dropped++
			m.counters.Dropped++
			p.log.Warn("Изменение с недопустимым слоем %d отброшено", mod.Layer)
			continue
		}
		c := p.geometry.WorldToChunk(vec.Vec2Float{X: mod.WorldX, Y: mod.WorldY})
		if !m.IsLoaded(c) {
			if p.ParkUnloaded {
				if n := m.Park(c, mod); n > 0 {
					res.Dropped += n
					m.counters.Dropped += uint64(n)
					p.log.Debug("Лимит отложенных правок: вытеснено %d", n)
				}
				res.Parked++
				m.counters.Parked++
				continue
			}
			res.Dropped++
			m.counters.Dropped++
			p.log.Debug("Изменение (%.1f,%.1f) для незагруженного чанка %s отброшено", mod.WorldX, mod.WorldY, c)
			continue
		}
		if p.applyOne(m, mod) {
			res.Applied++
		} else {
			res.Dropped++
			m.counters.Dropped++
		}
	}
	return res
}

func (p *Pipeline) applyOne(m *Manager, mod TileModification) bool {
	c, x, y := p.geometry.WorldToLocal(vec.Vec2Float{X: mod.WorldX, Y: mod.WorldY})
	lc, ok := m.Get(c)
	if !ok {
		return false
	}
	if err := lc.Data.SetTile(mod.Layer, x, y, mod.Tile); err != nil {
		p.log.Warn("Изменение тайла в %s отклонено: %v", c, err)
		return false
	}
	p.renderer.UpdateTile(lc.Handles[mod.Layer], x, y, mod.Tile)
	m.counters.Applied++
	return true
}
