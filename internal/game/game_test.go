package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/render"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

func newTestEngine(t *testing.T) (*Engine, *render.Headless, *storage.ChunkStore) {
	t.Helper()
	policy := world.DefaultPolicy()
	chunks := storage.NewChunkStore(storage.NewCodec(policy.Geometry), storage.NewMemoryStore())
	r := render.NewHeadless()
	e, err := NewEngine(Options{
		Policy:    policy,
		Generator: world.CheckerGenerator{Width: world.DefaultChunkSize, Height: world.DefaultChunkSize},
		Store:     chunks,
		Renderer:  r,
	})
	require.NoError(t, err)
	return e, r, chunks
}

func TestCamera(t *testing.T) {
	assert.Equal(t, MinZoom, ClampZoom(0.1))
	assert.Equal(t, MaxZoom, ClampZoom(10))
	assert.Equal(t, 1.5, ClampZoom(1.5))

	c := NewCamera(vec.Vec2Float{X: 1, Y: 2})
	assert.InDelta(t, 1.3, c.ZoomBy(3).Zoom, 1e-9)
	assert.Equal(t, MinZoom, c.ZoomBy(-100).Zoom)
	assert.Equal(t, vec.Vec2Float{X: 4, Y: 0}, c.Move(vec.Vec2Float{X: 3, Y: -2}).Position)
	assert.Equal(t, 1.0, c.Zoom, "Camera передаётся по значению")
}

func TestNewEngineValidation(t *testing.T) {
	p := world.DefaultPolicy()
	p.Buffer = 0
	_, err := NewEngine(Options{Policy: p, Generator: world.CheckerGenerator{Width: 32, Height: 32}, Renderer: render.NewHeadless()})
	assert.Error(t, err)

	_, err = NewEngine(Options{Policy: world.DefaultPolicy()})
	assert.Error(t, err, "без генератора и рендерера движок не собрать")
}

func TestEngineStep(t *testing.T) {
	ctx := context.Background()
	e, r, _ := newTestEngine(t)

	rep := e.Step(ctx, NewCamera(vec.Vec2Float{}))
	assert.Equal(t, uint64(1), rep.Step)
	assert.Equal(t, 121, rep.Loader.Loaded)
	assert.Equal(t, 121, e.Stats().Loaded)
	assert.Equal(t, world.Radii{Visible: 3, Load: 5, Unload: 7}, e.Radii())

	t.Run("правки применяются в порядке очереди", func(t *testing.T) {
		e.QueueTileModification(10, 10, tile.Dirt, tile.Ground)
		e.QueueTileModification(10, 10, tile.Stone, tile.Ground)
		rep := e.Step(ctx, NewCamera(vec.Vec2Float{}))
		assert.Equal(t, 2, rep.Apply.Applied)

		snap, ok := e.ChunkSnapshot(world.ChunkCoord{})
		require.True(t, ok)
		id, err := snap.GetTile(tile.Ground, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, tile.Stone, id)
		assert.True(t, snap.IsDirty())

		e.Inspect(func(m *world.Manager) {
			assert.NoError(t, r.Verify(m), "рендерер совпадает с данными")
		})
	})

	t.Run("масштаб ограничивается", func(t *testing.T) {
		rep := e.Step(ctx, Camera{Zoom: 100})
		assert.Equal(t, MaxZoom, rep.Camera.Zoom)
		assert.Equal(t, rep, e.LastStep())
	})

	t.Run("сетка и обзор", func(t *testing.T) {
		assert.Contains(t, e.Grid(), "@")
		assert.NotEmpty(t, e.Overview(4))
		assert.Len(t, e.LoadedCoords(), e.Stats().Loaded)
	})

	t.Run("снимок отсутствующего чанка", func(t *testing.T) {
		_, ok := e.ChunkSnapshot(world.ChunkCoord{X: 1000, Y: 1000})
		assert.False(t, ok)
	})
}

func TestEngineSaveAndShutdown(t *testing.T) {
	ctx := context.Background()
	e, _, chunks := newTestEngine(t)

	e.Step(ctx, NewCamera(vec.Vec2Float{}))
	e.QueueTileModification(10, 10, tile.Water, tile.Ground)
	e.QueueTileModification(300, 10, tile.Water, tile.Ground)
	e.Step(ctx, NewCamera(vec.Vec2Float{}))

	n, err := e.SaveDirty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, e.Stats().Dirty)

	coords, err := chunks.Coords(ctx)
	require.NoError(t, err)
	assert.Len(t, coords, 2, "сохраняются только изменённые чанки")

	require.NoError(t, e.Shutdown(ctx))
	assert.Zero(t, e.Stats().Loaded)

	data, err := chunks.Load(ctx, world.ChunkCoord{X: 1, Y: 0})
	require.NoError(t, err)
	id, _ := data.GetTile(tile.Ground, 5, 1)
	assert.Equal(t, tile.Water, id)
}

type countingBehavior struct{ ticks int }

func (c *countingBehavior) Tick() { c.ticks++ }

func TestRun(t *testing.T) {
	e, _, _ := newTestEngine(t)
	b := &countingBehavior{}
	var reports []StepReport

	err := e.Run(context.Background(), RunOptions{
		Tick:     time.Millisecond,
		MaxSteps: 5,
		Camera: CameraFunc(func(step uint64) Camera {
			return NewCamera(vec.Vec2Float{X: float64(step) * 256})
		}),
		Behaviors: []Behavior{b},
		OnStep:    func(r StepReport) { reports = append(reports, r) },
	})
	require.NoError(t, err)
	assert.Equal(t, 5, b.ticks)
	require.Len(t, reports, 5)
	assert.Equal(t, uint64(5), e.LastStep().Step)
	assert.Equal(t, world.ChunkCoord{X: 4}, reports[4].Loader.Camera)

	t.Run("отмена контекста", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NoError(t, e.Run(ctx, RunOptions{Tick: time.Hour}))
	})
}

func TestEngineSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e, _, _ := newTestEngine(t)
	e.Step(context.Background(), NewCamera(vec.Vec2Float{}))

	names := make(map[string]int)
	for _, s := range sr.Ended() {
		names[s.Name()]++
	}
	assert.Equal(t, 1, names["world.step"])
	assert.Equal(t, 1, names["world.loader.step"])
	assert.Equal(t, 1, names["world.apply"])
	assert.Equal(t, 121, names["world.load"])
}

func TestOpenWorld(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.World.Generator = "checker"
	cfg.Storage.Dir = t.TempDir()
	cfg.Storage.Compress = true
	cfg.Storage.CacheBytes = 1 << 20

	w, err := OpenWorld(ctx, cfg)
	require.NoError(t, err)
	id := w.Manifest.WorldID
	assert.NotEmpty(t, id)

	w.Engine.Step(ctx, NewCamera(vec.Vec2Float{}))
	w.Engine.QueueTileModification(10, 10, tile.Stone, tile.Ground)
	w.Engine.Step(ctx, NewCamera(vec.Vec2Float{}))
	require.NoError(t, w.Close(ctx))

	t.Run("повторное открытие читает сохранённые чанки", func(t *testing.T) {
		w, err := OpenWorld(ctx, cfg)
		require.NoError(t, err)
		defer w.Close(ctx)
		assert.Equal(t, id, w.Manifest.WorldID)

		w.Engine.Step(ctx, NewCamera(vec.Vec2Float{}))
		snap, ok := w.Engine.ChunkSnapshot(world.ChunkCoord{})
		require.True(t, ok)
		assert.Equal(t, world.OriginStored, snap.Origin)
		got, _ := snap.GetTile(tile.Ground, 1, 1)
		assert.Equal(t, tile.Stone, got)
	})

	t.Run("другой размер чанка не открывается", func(t *testing.T) {
		other := *cfg
		other.World.ChunkWidth = 16
		_, err := OpenWorld(ctx, &other)
		assert.Error(t, err)
	})
}

func TestNewGenerator(t *testing.T) {
	cfg := config.Default().World
	g, err := NewGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, &world.PerlinGenerator{}, g)

	cfg.Generator = "voronoi"
	_, err = NewGenerator(cfg)
	assert.Error(t, err)
}
