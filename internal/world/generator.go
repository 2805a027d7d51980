package world

import (
	"math/rand"
	"sync"

	"github.com/aquilax/go-perlin"

	"github.com/annel0/tileworld/internal/tile"
)

// Generator создаёт данные чанка, которого нет в хранилище.
// Реализации обязаны быть детерминированными: одни и те же координаты
// и настройки дают один и тот же чанк.
type Generator interface {
	Generate(coord ChunkCoord) *ChunkData
}

// CheckerGenerator шахматная доска из травы и земли на слое Ground
type CheckerGenerator struct {
	Width, Height int
}

// Generate заполняет Ground по чётности (x+y)
func (g CheckerGenerator) Generate(coord ChunkCoord) *ChunkData {
	c := NewChunkData(coord, g.Width, g.Height)
	ground := make([]tile.ID, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if (x+y)%2 == 0 {
				ground[y*g.Width+x] = tile.Grass
			} else {
				ground[y*g.Width+x] = tile.Dirt
			}
		}
	}
	_ = c.SetLayer(tile.Ground, ground)
	c.Origin = OriginGenerated
	return c
}

// Пороги высоты (шум нормирован в 0..1)
const (
	WaterMax = 0.38 // ниже - вода
	SandMax  = 0.44 // ниже - пляж
	GrassMax = 0.62 // ниже - трава
	DirtMax  = 0.72 // ниже - земля, выше - камень
)

// Параметры шума высоты
const (
	DefaultNoiseScale = 0.05
	noiseAlpha        = 2.0 // Сглаживание шума
	noiseBeta         = 2.0 // Частота шума
	noiseOctaves      = 3   // Количество октав
)

// PerlinGenerator ландшафт из шума Перлина по мировым координатам тайлов,
// поэтому границы соседних чанков совпадают. Нулевой NoiseScale
// означает DefaultNoiseScale, шум создаётся при первом обращении.
type PerlinGenerator struct {
	Seed       int64
	Width      int
	Height     int
	NoiseScale float64 // масштаб шума высоты
	// DecorationDensity вероятность цветка на траве и камешков на земле.
	// 0 оставляет слои Decoration и Overlay пустыми.
	DecorationDensity float64

	noiseOnce sync.Once
	noise     *perlin.Perlin
}

// NewPerlinGenerator создаёт генератор с собственным экземпляром шума
func NewPerlinGenerator(seed int64, width, height int) *PerlinGenerator {
	return &PerlinGenerator{
		Seed:       seed,
		Width:      width,
		Height:     height,
		NoiseScale: DefaultNoiseScale,
	}
}

func (g *PerlinGenerator) perlinNoise() *perlin.Perlin {
	g.noiseOnce.Do(func() {
		g.noise = perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, g.Seed)
	})
	return g.noise
}

// HeightAt высота в 0..1 для глобальных координат тайла
func (g *PerlinGenerator) HeightAt(tx, ty int) float64 {
	scale := g.NoiseScale
	if scale == 0 {
		scale = DefaultNoiseScale
	}
	v := g.perlinNoise().Noise2D(float64(tx)*scale, float64(ty)*scale)
	h := (v + 1.0) / 2.0
	switch {
	case h < 0:
		return 0
	case h > 1:
		return 1
	}
	return h
}

// Generate строит Ground по высоте и, при DecorationDensity > 0, редкие декорации
func (g *PerlinGenerator) Generate(coord ChunkCoord) *ChunkData {
	c := NewChunkData(coord, g.Width, g.Height)

	// Отдельный сид на чанк: результат не зависит от порядка генерации
	chunkSeed := g.Seed + int64(coord.X)*31 + int64(coord.Y)*17
	rng := rand.New(rand.NewSource(chunkSeed))

	ground := make([]tile.ID, g.Width*g.Height)
	decor := make([]tile.ID, g.Width*g.Height)
	startX := int(coord.X) * g.Width
	startY := int(coord.Y) * g.Height

	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			i := y*g.Width + x
			ground[i] = groundForHeight(g.HeightAt(startX+x, startY+y))

			if g.DecorationDensity <= 0 {
				continue
			}
			roll := rng.Float64()
			switch {
			case ground[i] == tile.Grass && roll < g.DecorationDensity:
				decor[i] = tile.Flower
			case ground[i] == tile.Dirt && roll < g.DecorationDensity:
				decor[i] = tile.Pebbles
			}
		}
	}

	_ = c.SetLayer(tile.Ground, ground)
	_ = c.SetLayer(tile.Decoration, decor)
	c.Origin = OriginGenerated
	return c
}

func groundForHeight(h float64) tile.ID {
	switch {
	case h < WaterMax:
		return tile.Water
	case h < SandMax:
		return tile.Sand
	case h < GrassMax:
		return tile.Grass
	case h < DirtMax:
		return tile.Dirt
	default:
		return tile.Stone
	}
}
