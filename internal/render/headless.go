package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/world"
)

// Layer визуальный слой чанка в памяти
type Layer struct {
	Coord world.ChunkCoord
	Layer tile.Layer
	Depth float64
	Width int
	Tiles []tile.ID
}

// Headless рендерер без графики: хранит тайлы каждого слоя в памяти.
// Используется сервером без окна и в тестах для проверки согласованности.
type Headless struct {
	mu       sync.RWMutex
	next     world.Handle
	layers   map[world.Handle]*Layer
	spawned  uint64
	despawns uint64
	updates  uint64
}

var _ world.Renderer = (*Headless)(nil)

// NewHeadless создаёт пустой рендерер
func NewHeadless() *Headless {
	return &Headless{layers: make(map[world.Handle]*Layer)}
}

func (h *Headless) SpawnLayer(c world.ChunkCoord, l tile.Layer, depth float64, width int, tiles []tile.ID) world.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.layers[h.next] = &Layer{
		Coord: c,
		Layer: l,
		Depth: depth,
		Width: width,
		Tiles: append([]tile.ID(nil), tiles...),
	}
	h.spawned++
	return h.next
}

func (h *Headless) UpdateTile(handle world.Handle, x, y int, id tile.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.layers[handle]
	if !ok {
		return
	}
	i := y*l.Width + x
	if x < 0 || x >= l.Width || i < 0 || i >= len(l.Tiles) {
		return
	}
	l.Tiles[i] = id
	h.updates++
}

func (h *Headless) Despawn(handle world.Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.layers[handle]; ok {
		delete(h.layers, handle)
		h.despawns++
	}
}

// Counters счётчики операций
type Counters struct {
	Live     int    `json:"live"`
	Spawned  uint64 `json:"spawned"`
	Despawns uint64 `json:"despawns"`
	Updates  uint64 `json:"updates"`
}

// Counters возвращает счётчики
func (h *Headless) Counters() Counters {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Counters{Live: len(h.layers), Spawned: h.spawned, Despawns: h.despawns, Updates: h.updates}
}

// Snapshot копия слоя по ссылке
func (h *Headless) Snapshot(handle world.Handle) (Layer, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	l, ok := h.layers[handle]
	if !ok {
		return Layer{}, false
	}
	cp := *l
	cp.Tiles = append([]tile.ID(nil), l.Tiles...)
	return cp, true
}

// Verify сверяет визуальные слои с данными загруженных чанков.
// Возвращает описание первого расхождения.
func (h *Headless) Verify(m *world.Manager) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	want := len(m.Coords()) * int(tile.MaxLayers)
	if len(h.layers) != want {
		return fmt.Errorf("визуальных слоёв %d, ожидалось %d", len(h.layers), want)
	}
	for _, c := range m.Coords() {
		lc, _ := m.Get(c)
		for _, l := range tile.Layers {
			vis, ok := h.layers[lc.Handles[l]]
			if !ok {
				return fmt.Errorf("чанк %s: нет визуала слоя %s", c, l)
			}
			if vis.Coord != c || vis.Layer != l {
				return fmt.Errorf("чанк %s: визуал слоя %s принадлежит %s/%s", c, l, vis.Coord, vis.Layer)
			}
			data := lc.Data.Layer(l)
			for i := range data {
				if data[i] != vis.Tiles[i] {
					return fmt.Errorf("чанк %s слой %s: тайл %d = %d, в данных %d", c, l, i, vis.Tiles[i], data[i])
				}
			}
		}
	}
	return nil
}

// ASCII рисует слой символами тайлов, верхняя строка - максимальный y
func (l Layer) ASCII() string {
	var b strings.Builder
	rows := len(l.Tiles) / max(l.Width, 1)
	for y := rows - 1; y >= 0; y-- {
		for x := 0; x < l.Width; x++ {
			b.WriteRune(l.Tiles[y*l.Width+x].Glyph())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
