package world

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
)

// chunkCenter мировые координаты центра чанка при геометрии по умолчанию
func chunkCenter(x, y int) vec.Vec2Float {
	return vec.Vec2Float{X: float64(x)*256 + 128, Y: float64(y)*256 + 128}
}

func newTestLoader(store ChunkPersister) (*Loader, *Manager, *fakeRenderer) {
	r := newFakeRenderer()
	p := DefaultPolicy()
	gen := CheckerGenerator{Width: p.Geometry.ChunkWidth, Height: p.Geometry.ChunkHeight}
	return NewLoader(p, gen, store, r), NewManager(), r
}

func TestPolicyRadii(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	r := p.Radii(1)
	assert.Equal(t, Radii{Visible: 3, Load: 5, Unload: 7}, r)

	// Сильное приближение: срабатывает минимальный радиус
	assert.Equal(t, 3, p.Radii(0.1).Load)

	// Отдаление расширяет радиусы, гистерезис сохраняется
	far := p.Radii(3)
	assert.Equal(t, 10, far.Load)
	assert.Equal(t, far.Load+p.Buffer, far.Unload)

	assert.Equal(t, r, p.Radii(0), "некорректный масштаб трактуется как 1")

	p.Buffer = 0
	assert.Error(t, p.Validate())
}

func TestLoaderInitialLoad(t *testing.T) {
	l, m, r := newTestLoader(newMemPersister())

	res := l.Step(context.Background(), m, chunkCenter(0, 0), 1)
	assert.Equal(t, 121, res.Loaded, "квадрат 11x11")
	assert.Equal(t, 0, res.Unloaded)
	assert.Equal(t, ChunkCoord{}, res.Camera)

	for _, c := range m.Coords() {
		assert.LessOrEqual(t, c.Chebyshev(ChunkCoord{}), 5)
	}
	assert.Len(t, r.layers, 121*3, "по одному визуалу на слой")
	assert.True(t, r.consistent(m))

	for _, fl := range r.layers {
		assert.InDelta(t, fl.layer.RenderDepth(), fl.depth, 1e-9)
	}

	// Повторный шаг без движения ничего не меняет
	res = l.Step(context.Background(), m, chunkCenter(0, 0), 1)
	assert.Equal(t, 0, res.Loaded)
	assert.Equal(t, 0, res.Unloaded)
	assert.Equal(t, uint64(121), m.Stats().Generated)
}

func TestLoaderHysteresis(t *testing.T) {
	l, m, r := newTestLoader(newMemPersister())
	ctx := context.Background()

	l.Step(ctx, m, chunkCenter(0, 0), 1)
	res := l.Step(ctx, m, chunkCenter(1, 0), 1)
	assert.Equal(t, 11, res.Loaded, "новая колонка x=6")
	assert.Equal(t, 0, res.Unloaded, "колонка x=-5 в пределах радиуса выгрузки")

	// Колебание камеры на границе чанков не вызывает перезагрузок
	for i := 0; i < 10; i++ {
		res = l.Step(ctx, m, chunkCenter(i%2, 0), 1)
		assert.Equal(t, 0, res.Loaded, "итерация %d", i)
		assert.Equal(t, 0, res.Unloaded, "итерация %d", i)
	}
	assert.Equal(t, 132, len(m.Coords()))
	assert.True(t, r.consistent(m))
}

func TestLoaderUnloadFar(t *testing.T) {
	store := newMemPersister()
	l, m, r := newTestLoader(store)
	ctx := context.Background()

	l.Step(ctx, m, chunkCenter(0, 0), 1)
	edited := ChunkCoord{X: -5, Y: 0}
	lc, ok := m.Get(edited)
	require.True(t, ok)
	require.NoError(t, lc.Data.SetTile(tile.Ground, 3, 4, tile.Water))

	res := l.Step(ctx, m, chunkCenter(10, 0), 1)
	assert.Equal(t, 0, len(filterOutside(m.Coords(), ChunkCoord{X: 10}, 7)), "все чанки в радиусе выгрузки")
	assert.Greater(t, res.Unloaded, 0)
	assert.False(t, m.IsLoaded(edited))
	assert.True(t, r.consistent(m))

	// Сохранён только изменённый чанк
	assert.Equal(t, 1, store.saves)
	saved, ok := store.chunks[edited]
	require.True(t, ok)
	id, _ := saved.GetTile(tile.Ground, 3, 4)
	assert.Equal(t, tile.Water, id)

	// Возвращаемся: чанк читается из хранилища, а не генерируется
	l.Step(ctx, m, chunkCenter(0, 0), 1)
	lc, ok = m.Get(edited)
	require.True(t, ok)
	assert.Equal(t, OriginStored, lc.Data.Origin)
	assert.False(t, lc.Data.IsDirty())
	id, _ = lc.Data.GetTile(tile.Ground, 3, 4)
	assert.Equal(t, tile.Water, id)
	assert.Equal(t, uint64(1), m.Stats().LoadedFromStore)
}

func filterOutside(coords []ChunkCoord, center ChunkCoord, r int) []ChunkCoord {
	var out []ChunkCoord
	for _, c := range coords {
		if center.Chebyshev(c) > r {
			out = append(out, c)
		}
	}
	return out
}

func TestLoaderSaveFailureKeepsChunk(t *testing.T) {
	store := newMemPersister()
	l, m, r := newTestLoader(store)
	ctx := context.Background()

	l.Step(ctx, m, chunkCenter(0, 0), 1)
	edited := ChunkCoord{X: -5, Y: -5}
	lc, _ := m.Get(edited)
	require.NoError(t, lc.Data.SetTile(tile.Overlay, 0, 0, tile.FogBlack))

	store.failSave = true
	res := l.Step(ctx, m, chunkCenter(10, 0), 1)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, m.IsLoaded(edited), "несохранённый чанк остаётся загруженным")
	assert.True(t, lc.Data.IsDirty())
	assert.True(t, r.consistent(m))
	assert.Equal(t, uint64(1), m.Stats().SaveFailures)

	store.failSave = false
	res = l.Step(ctx, m, chunkCenter(10, 0), 1)
	assert.Equal(t, 0, res.Failed)
	assert.False(t, m.IsLoaded(edited))
	_, ok := store.chunks[edited]
	assert.True(t, ok, "повторная попытка сохранила чанк")
}

func TestLoaderCorruptAndErrors(t *testing.T) {
	store := newMemPersister()
	store.loadErr[ChunkCoord{X: 1, Y: 1}] = fmt.Errorf("bad crc: %w", ErrCorruptChunk)
	store.loadErr[ChunkCoord{X: 2, Y: 2}] = errors.New("permission denied")
	l, m, _ := newTestLoader(store)

	l.Step(context.Background(), m, chunkCenter(0, 0), 1)
	for _, c := range []ChunkCoord{{1, 1}, {2, 2}} {
		lc, ok := m.Get(c)
		require.True(t, ok, "чанк %s должен быть сгенерирован", c)
		assert.Equal(t, OriginGenerated, lc.Data.Origin)
	}
	s := m.Stats()
	assert.Equal(t, uint64(1), s.Corrupt)
	assert.Equal(t, uint64(1), s.LoadErrors)
}

func TestLoaderSaveDirtyAndUnloadAll(t *testing.T) {
	store := newMemPersister()
	l, m, r := newTestLoader(store)
	ctx := context.Background()

	l.Step(ctx, m, chunkCenter(0, 0), 0.1)
	require.Equal(t, 49, len(m.Coords()))
	for _, c := range []ChunkCoord{{0, 0}, {1, 0}} {
		lc, _ := m.Get(c)
		require.NoError(t, lc.Data.SetTile(tile.Ground, 0, 0, tile.Sand))
	}

	n, err := l.SaveDirty(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, m.DirtyCoords())
	assert.Equal(t, 49, len(m.Coords()), "автосохранение не выгружает")

	require.NoError(t, l.UnloadAll(ctx, m))
	assert.Empty(t, m.Coords())
	assert.Empty(t, r.layers)
	assert.Equal(t, 2, store.saves, "чистые чанки не пересохраняются")
}

func TestLoaderCancelledContext(t *testing.T) {
	l, m, _ := newTestLoader(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := l.Step(ctx, m, chunkCenter(0, 0), 1)
	assert.Equal(t, 0, res.Loaded)
}

func TestRenderGrid(t *testing.T) {
	l, m, _ := newTestLoader(nil)
	assert.Contains(t, RenderGrid(m, Radii{}, nil), "камера не задана")

	res := l.Step(context.Background(), m, chunkCenter(0, 0), 1)
	visible := l.Policy().VisibleChunks(chunkCenter(0, 0), 1)
	assert.Contains(t, visible, ChunkCoord{X: 2, Y: 1})
	assert.NotContains(t, visible, ChunkCoord{X: 4, Y: 0})

	grid := RenderGrid(m, res.Radii, visible)
	legend := strings.Index(grid, "@ камера")
	require.Greater(t, legend, 0)
	grid = grid[:legend]
	assert.Equal(t, 1, strings.Count(grid, string(GlyphCamera)))
	assert.Contains(t, grid, string(GlyphVisibleLoaded))
	assert.Contains(t, grid, string(GlyphLoaded))
	assert.Contains(t, grid, string(GlyphEmpty))
	assert.NotContains(t, grid, string(GlyphPending))
}

func TestOverview(t *testing.T) {
	m := NewManager()
	for _, c := range []ChunkCoord{{0, 0}, {1, 0}, {-1, -1}} {
		d := NewChunkData(c, 2, 2)
		fill := tile.Grass
		if c.X == 1 {
			fill = tile.Dirt
		}
		require.NoError(t, d.Fill(tile.Ground, fill))
		require.NoError(t, m.Load(c, d, [tile.MaxLayers]Handle{}))
	}
	// В клетке (0,0) поровну травы и земли: побеждает меньший ID
	cells := Overview(m, 4)
	require.Len(t, cells, 2)
	assert.Equal(t, OverviewCell{X: -1, Y: -1, Dominant: tile.Grass, Chunks: 1}, cells[0])
	assert.Equal(t, OverviewCell{X: 0, Y: 0, Dominant: tile.Grass, Chunks: 2}, cells[1])
}
