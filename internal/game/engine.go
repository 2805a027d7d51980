package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/world"
)

// Options зависимости движка
type Options struct {
	Policy    world.Policy
	Generator world.Generator
	Store     world.ChunkPersister // nil - мир без сохранения
	Renderer  world.Renderer

	ParkUnloadedEdits bool
	MaxParkedPerChunk int
	MaxParkedTotal    int
}

// StepReport итог одного шага
type StepReport struct {
	Step     uint64            `json:"step"`
	Camera   Camera            `json:"camera"`
	Loader   world.StepResult  `json:"loader"`
	Apply    world.ApplyResult `json:"apply"`
	Duration time.Duration     `json:"duration"`
}

// Engine владеет миром и выполняет шаги по порядку. Все обращения к
// Manager идут через мьютекс движка, поэтому движок можно вызывать из
// HTTP-обработчиков и поведений в других горутинах.
type Engine struct {
	mu       sync.Mutex
	manager  *world.Manager
	loader   *world.Loader
	pipeline *world.Pipeline
	policy   world.Policy

	camera Camera
	steps  uint64
	last   StepReport

	tracer trace.Tracer
	log    *logging.Logger
}

// NewEngine собирает движок
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная политика загрузки: %w", err)
	}
	if opts.Generator == nil || opts.Renderer == nil {
		return nil, fmt.Errorf("генератор и рендерер обязательны")
	}

	m := world.NewManager()
	m.SetMaxParkedPerChunk(opts.MaxParkedPerChunk)
	m.SetMaxParkedTotal(opts.MaxParkedTotal)
	p := world.NewPipeline(opts.Policy.Geometry, opts.Renderer)
	p.ParkUnloaded = opts.ParkUnloadedEdits

	return &Engine{
		manager:  m,
		loader:   world.NewLoader(opts.Policy, opts.Generator, opts.Store, opts.Renderer),
		pipeline: p,
		policy:   opts.Policy,
		camera:   Camera{Zoom: 1},
		tracer:   otel.Tracer("github.com/annel0/tileworld/internal/game"),
		log:      logging.GetGameLogger(),
	}, nil
}

// Step один шаг мира: загрузка/выгрузка вокруг камеры, затем применение очереди изменений
func (e *Engine) Step(ctx context.Context, cam Camera) StepReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "world.step")
	defer span.End()

	start := time.Now()
	cam.Zoom = ClampZoom(cam.Zoom)
	e.camera = cam
	e.steps++

	rep := StepReport{Step: e.steps, Camera: cam}
	rep.Loader = e.loader.Step(ctx, e.manager, cam.Position, cam.Zoom)

	_, applySpan := e.tracer.Start(ctx, "world.apply")
	rep.Apply = e.pipeline.Apply(e.manager)
	applySpan.SetAttributes(
		attribute.Int("world.applied", rep.Apply.Applied),
		attribute.Int("world.dropped", rep.Apply.Dropped),
	)
	applySpan.End()

	rep.Duration = time.Since(start)
	span.SetAttributes(attribute.Int64("world.step", int64(rep.Step)))
	e.last = rep

	if rep.Loader.Loaded > 0 || rep.Loader.Unloaded > 0 {
		e.log.Debug("Шаг %d: загружено %d, выгружено %d, камера %s",
			rep.Step, rep.Loader.Loaded, rep.Loader.Unloaded, rep.Loader.Camera)
	}
	return rep
}

// QueueTileModification ставит изменение тайла в очередь. Безопасно из любой горутины.
func (e *Engine) QueueTileModification(worldX, worldY float64, id tile.ID, layer tile.Layer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.manager.QueueTileModification(worldX, worldY, id, layer)
}

var _ world.TileEditor = (*Engine)(nil)

// Stats снимок состояния мира
func (e *Engine) Stats() world.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.manager.Stats()
}

// LastStep отчёт последнего шага
func (e *Engine) LastStep() StepReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Radii радиусы при текущем масштабе камеры
func (e *Engine) Radii() world.Radii {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.Radii(e.camera.Zoom)
}

// Grid отладочная сетка чанков вокруг камеры
func (e *Engine) Grid() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	visible := e.policy.VisibleChunks(e.camera.Position, e.camera.Zoom)
	return world.RenderGrid(e.manager, e.policy.Radii(e.camera.Zoom), visible)
}

// Overview обзорная карта загруженного мира
func (e *Engine) Overview(cellSize int) []world.OverviewCell {
	e.mu.Lock()
	defer e.mu.Unlock()
	return world.Overview(e.manager, cellSize)
}

// ChunkSnapshot копия данных загруженного чанка
func (e *Engine) ChunkSnapshot(c world.ChunkCoord) (*world.ChunkData, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lc, ok := e.manager.Get(c)
	if !ok {
		return nil, false
	}
	return lc.Data.Clone(), true
}

// LoadedCoords координаты загруженных чанков
func (e *Engine) LoadedCoords() []world.ChunkCoord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.manager.Coords()
}

// SaveDirty сохраняет изменённые чанки, не выгружая их
func (e *Engine) SaveDirty(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loader.SaveDirty(ctx, e.manager)
}

// Shutdown сохраняет и выгружает всё
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats := e.manager.Stats()
	err := e.loader.UnloadAll(ctx, e.manager)
	e.log.Info("💾 Мир сохранён: %d чанков было загружено, %d изменено", stats.Loaded, stats.Dirty)
	return err
}

// Inspect даёт доступ к менеджеру под мьютексом движка. Для тестов и инструментов.
func (e *Engine) Inspect(fn func(m *world.Manager)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.manager)
}
