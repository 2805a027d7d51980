package world

import (
	"context"
	"errors"

	"github.com/annel0/tileworld/internal/tile"
)

type fakeLayer struct {
	coord ChunkCoord
	layer tile.Layer
	depth float64
	width int
	tiles []tile.ID
}

// fakeRenderer хранит визуальные слои в памяти
type fakeRenderer struct {
	next     Handle
	layers   map[Handle]*fakeLayer
	despawns int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{layers: make(map[Handle]*fakeLayer)}
}

func (r *fakeRenderer) SpawnLayer(c ChunkCoord, l tile.Layer, depth float64, width int, tiles []tile.ID) Handle {
	r.next++
	r.layers[r.next] = &fakeLayer{coord: c, layer: l, depth: depth, width: width, tiles: append([]tile.ID(nil), tiles...)}
	return r.next
}

func (r *fakeRenderer) UpdateTile(h Handle, x, y int, id tile.ID) {
	if fl, ok := r.layers[h]; ok {
		fl.tiles[y*fl.width+x] = id
	}
}

func (r *fakeRenderer) Despawn(h Handle) {
	if _, ok := r.layers[h]; ok {
		delete(r.layers, h)
		r.despawns++
	}
}

// consistent проверяет, что визуальные слои совпадают с данными чанков
func (r *fakeRenderer) consistent(m *Manager) bool {
	if len(r.layers) != len(m.Coords())*int(tile.MaxLayers) {
		return false
	}
	for _, c := range m.Coords() {
		lc, _ := m.Get(c)
		for _, l := range tile.Layers {
			fl, ok := r.layers[lc.Handles[l]]
			if !ok || fl.coord != c || fl.layer != l {
				return false
			}
			data := lc.Data.Layer(l)
			for i := range data {
				if data[i] != fl.tiles[i] {
					return false
				}
			}
		}
	}
	return true
}

// memPersister хранилище в памяти с управляемыми ошибками
type memPersister struct {
	chunks   map[ChunkCoord]*ChunkData
	loadErr  map[ChunkCoord]error
	failSave bool
	saves    int
}

func newMemPersister() *memPersister {
	return &memPersister{chunks: make(map[ChunkCoord]*ChunkData), loadErr: make(map[ChunkCoord]error)}
}

func (p *memPersister) Load(_ context.Context, c ChunkCoord) (*ChunkData, error) {
	if err := p.loadErr[c]; err != nil {
		return nil, err
	}
	d, ok := p.chunks[c]
	if !ok {
		return nil, ErrChunkNotFound
	}
	cp := d.Clone()
	cp.MarkClean()
	cp.Origin = OriginStored
	return cp, nil
}

func (p *memPersister) Save(_ context.Context, c ChunkCoord, d *ChunkData) error {
	if p.failSave {
		return errors.New("disk full")
	}
	p.saves++
	p.chunks[c] = d.Clone()
	return nil
}
