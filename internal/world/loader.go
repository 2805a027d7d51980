package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
)

// ChunkPersister долговременное хранилище чанков.
// Load возвращает ErrChunkNotFound, если записи нет, и ошибку с ErrCorruptChunk,
// если запись не читается. Save не сбрасывает флаг dirty.
type ChunkPersister interface {
	Load(ctx context.Context, coord ChunkCoord) (*ChunkData, error)
	Save(ctx context.Context, coord ChunkCoord, data *ChunkData) error
}

// Policy параметры радиусов загрузки
type Policy struct {
	MinLoadRadius  int     // нижняя граница радиуса загрузки
	Buffer         int     // запас сверх видимой области и зазор гистерезиса, >= 1
	ViewportWidth  float64 // эталонный размер окна в пикселях
	ViewportHeight float64
	Geometry       Geometry
}

// Значения политики по умолчанию
const (
	DefaultMinLoadRadius  = 3
	DefaultBuffer         = 2
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// DefaultPolicy политика по умолчанию
func DefaultPolicy() Policy {
	return Policy{
		MinLoadRadius:  DefaultMinLoadRadius,
		Buffer:         DefaultBuffer,
		ViewportWidth:  DefaultViewportWidth,
		ViewportHeight: DefaultViewportHeight,
		Geometry:       DefaultGeometry(),
	}
}

// Validate проверяет политику. Buffer < 1 сломал бы гистерезис.
func (p Policy) Validate() error {
	if p.Buffer < 1 {
		return fmt.Errorf("buffer должен быть >= 1, получено %d", p.Buffer)
	}
	if p.MinLoadRadius < 0 {
		return fmt.Errorf("min_load_radius не может быть отрицательным: %d", p.MinLoadRadius)
	}
	if p.ViewportWidth <= 0 || p.ViewportHeight <= 0 {
		return fmt.Errorf("размер окна должен быть положительным: %vx%v", p.ViewportWidth, p.ViewportHeight)
	}
	return p.Geometry.Validate()
}

// Radii радиусы в чанках по расстоянию Чебышёва
type Radii struct {
	Visible int `json:"visible"`
	Load    int `json:"load"`
	Unload  int `json:"unload"`
}

// halfExtent половина видимой области в мировых единицах. zoom - масштаб
// проекции: больше значение, больше мира на экране.
func (p Policy) halfExtent(zoom float64) (float64, float64) {
	if zoom <= 0 {
		zoom = 1
	}
	return p.ViewportWidth / 2 * zoom, p.ViewportHeight / 2 * zoom
}

// Radii считает радиусы для масштаба zoom. При 1280x720, zoom 1 и чанке 256
// видимый радиус 3, загрузка 5, выгрузка 7.
func (p Policy) Radii(zoom float64) Radii {
	hw, hh := p.halfExtent(zoom)
	visible := max(
		int(math.Ceil(hw/p.Geometry.ChunkPixelWidth())),
		int(math.Ceil(hh/p.Geometry.ChunkPixelHeight())),
	)
	load := max(p.MinLoadRadius, visible+p.Buffer)
	return Radii{Visible: visible, Load: load, Unload: load + p.Buffer}
}

// VisibleChunks чанки, пересекающие прямоугольник окна вокруг камеры
func (p Policy) VisibleChunks(camera vec.Vec2Float, zoom float64) map[ChunkCoord]struct{} {
	hw, hh := p.halfExtent(zoom)
	lo := p.Geometry.WorldToChunk(vec.Vec2Float{X: camera.X - hw, Y: camera.Y - hh})
	hi := p.Geometry.WorldToChunk(vec.Vec2Float{X: camera.X + hw, Y: camera.Y + hh})
	out := make(map[ChunkCoord]struct{})
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			out[ChunkCoord{X: x, Y: y}] = struct{}{}
		}
	}
	return out
}

// StepResult итог одного шага загрузчика
type StepResult struct {
	Camera   ChunkCoord `json:"camera"`
	Radii    Radii      `json:"radii"`
	Loaded   int        `json:"loaded"`
	Unloaded int        `json:"unloaded"`
	Failed   int        `json:"failed"` // чанки, которые не удалось сохранить и поэтому оставлены в памяти
}

// Loader загружает чанки вокруг камеры и выгружает дальние
type Loader struct {
	policy    Policy
	generator Generator
	store     ChunkPersister
	renderer  Renderer
	tracer    trace.Tracer
	log       *logging.Logger
}

// NewLoader создаёт загрузчик. store может быть nil: тогда всё генерируется,
// а изменения теряются при выгрузке.
func NewLoader(policy Policy, gen Generator, store ChunkPersister, r Renderer) *Loader {
	return &Loader{
		policy:    policy,
		generator: gen,
		store:     store,
		renderer:  r,
		tracer:    otel.Tracer("github.com/annel0/tileworld/internal/world"),
		log:       logging.GetWorldLogger(),
	}
}

// Policy текущая политика
func (l *Loader) Policy() Policy {
	return l.policy
}

// Step приводит набор загруженных чанков в соответствие с позицией камеры:
// сначала загружает недостающие в радиусе загрузки, затем выгружает дальше радиуса выгрузки.
func (l *Loader) Step(ctx context.Context, m *Manager, camera vec.Vec2Float, zoom float64) StepResult {
	ctx, span := l.tracer.Start(ctx, "world.loader.step")
	defer span.End()

	center := l.policy.Geometry.WorldToChunk(camera)
	if m.SetCameraChunk(center) {
		l.log.Debug("📷 Камера перешла в чанк %s", center)
	}
	radii := l.policy.Radii(zoom)
	res := StepResult{Camera: center, Radii: radii}

	// Ближние чанки первыми
	wanted := center.InRadius(radii.Load)
	sort.SliceStable(wanted, func(i, j int) bool {
		return center.Chebyshev(wanted[i]) < center.Chebyshev(wanted[j])
	})
	for _, c := range wanted {
		if ctx.Err() != nil {
			break
		}
		if m.IsLoaded(c) {
			continue
		}
		if l.loadChunk(ctx, m, c) {
			res.Loaded++
		}
	}

	for _, c := range m.Coords() {
		if center.Chebyshev(c) <= radii.Unload {
			continue
		}
		if err := l.unloadChunk(ctx, m, c); err != nil {
			res.Failed++
			continue
		}
		res.Unloaded++
	}

	span.SetAttributes(
		attribute.Int("world.loaded", res.Loaded),
		attribute.Int("world.unloaded", res.Unloaded),
		attribute.Int("world.load_radius", radii.Load),
	)
	return res
}

// fetch берёт чанк из хранилища, при любой ошибке генерирует новый
func (l *Loader) fetch(ctx context.Context, m *Manager, c ChunkCoord) *ChunkData {
	if l.store != nil {
		data, err := l.store.Load(ctx, c)
		switch {
		case err == nil:
			m.counters.LoadedFromStore++
			if data.Origin == OriginUpgraded {
				m.counters.Upgraded++
				l.log.Info("Чанк %s преобразован из старого формата", c)
			}
			return data
		case errors.Is(err, ErrChunkNotFound):
			l.log.Trace("Чанк %s не найден в хранилище, генерируем", c)
		case errors.Is(err, ErrCorruptChunk):
			m.counters.Corrupt++
			l.log.Warn("⚠️ Чанк %s повреждён, генерируем заново: %v", c, err)
		default:
			m.counters.LoadErrors++
			l.log.Error("Ошибка чтения чанка %s, генерируем заново: %v", c, err)
		}
	}
	m.counters.Generated++
	return l.generator.Generate(c)
}

func (l *Loader) loadChunk(ctx context.Context, m *Manager, c ChunkCoord) bool {
	_, span := l.tracer.Start(ctx, "world.load", trace.WithAttributes(
		attribute.Int("chunk.x", int(c.X)), attribute.Int("chunk.y", int(c.Y))))
	defer span.End()

	data := l.fetch(ctx, m, c)
	handles := l.spawn(c, data)
	if err := m.Load(c, data, handles); err != nil {
		// Сюда попадаем только при ошибке в логике вызова
		l.despawn(handles)
		span.SetStatus(codes.Error, err.Error())
		l.log.Error("❌ Не удалось зарегистрировать чанк %s: %v", c, err)
		return false
	}
	l.log.Debug("Загружен чанк %s (%s)", c, data.Origin)
	return true
}

func (l *Loader) spawn(c ChunkCoord, data *ChunkData) [tile.MaxLayers]Handle {
	var handles [tile.MaxLayers]Handle
	for _, layer := range tile.Layers {
		handles[layer] = l.renderer.SpawnLayer(c, layer, layer.RenderDepth(), data.Width, data.Layer(layer))
	}
	return handles
}

func (l *Loader) despawn(handles [tile.MaxLayers]Handle) {
	for _, h := range handles {
		l.renderer.Despawn(h)
	}
}

// persist сохраняет грязный чанк. Флаг dirty сбрасывается только после успеха.
func (l *Loader) persist(ctx context.Context, m *Manager, c ChunkCoord, data *ChunkData) error {
	if !data.IsDirty() || l.store == nil {
		return nil
	}
	if err := l.store.Save(ctx, c, data); err != nil {
		m.counters.SaveFailures++
		return err
	}
	data.MarkClean()
	m.counters.Saved++
	return nil
}

// unloadChunk сохраняет чанк до удаления визуала. При ошибке сохранения чанк
// остаётся загруженным и грязным, повторная попытка будет на следующем шаге.
func (l *Loader) unloadChunk(ctx context.Context, m *Manager, c ChunkCoord) error {
	ctx, span := l.tracer.Start(ctx, "world.unload", trace.WithAttributes(
		attribute.Int("chunk.x", int(c.X)), attribute.Int("chunk.y", int(c.Y))))
	defer span.End()

	lc, ok := m.Get(c)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, c)
	}
	if err := l.persist(ctx, m, c, lc.Data); err != nil {
		span.SetStatus(codes.Error, err.Error())
		l.log.Error("❌ Не удалось сохранить чанк %s, оставляем в памяти: %v", c, err)
		return err
	}

	_, handles, err := m.Unload(c)
	if err != nil {
		l.log.Error("❌ Ошибка выгрузки чанка %s: %v", c, err)
		return err
	}
	l.despawn(handles)
	m.counters.Unloaded++
	l.log.Debug("Выгружен чанк %s", c)
	return nil
}

// SaveDirty сохраняет все грязные загруженные чанки (автосохранение)
func (l *Loader) SaveDirty(ctx context.Context, m *Manager) (int, error) {
	ctx, span := l.tracer.Start(ctx, "world.save_dirty")
	defer span.End()

	saved := 0
	var errs []error
	for _, c := range m.DirtyCoords() {
		lc, _ := m.Get(c)
		if err := l.persist(ctx, m, c, lc.Data); err != nil {
			l.log.Error("Ошибка автосохранения чанка %s: %v", c, err)
			errs = append(errs, fmt.Errorf("чанк %s: %w", c, err))
			continue
		}
		saved++
	}
	if saved > 0 {
		l.log.Debug("💾 Автосохранение: %d чанков", saved)
	}
	return saved, errors.Join(errs...)
}

// UnloadAll сохраняет и выгружает все чанки. Чанки, которые не удалось
// сохранить, остаются загруженными.
func (l *Loader) UnloadAll(ctx context.Context, m *Manager) error {
	var errs []error
	for _, c := range m.Coords() {
		if err := l.unloadChunk(ctx, m, c); err != nil {
			errs = append(errs, fmt.Errorf("чанк %s: %w", c, err))
		}
	}
	return errors.Join(errs...)
}
