package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/tile"
)

func TestChunkDataCreate(t *testing.T) {
	c := NewChunkData(ChunkCoord{X: 5, Y: -10}, 32, 16)

	assert.Equal(t, FormatVersion, c.Format)
	assert.False(t, c.IsDirty(), "новый чанк не должен быть грязным")
	for _, l := range tile.Layers {
		assert.Len(t, c.Layer(l), 32*16, "длина слоя %s", l)
		assert.Equal(t, 32*16, c.Count(l, tile.Empty))
	}
}

func TestChunkDataSetTile(t *testing.T) {
	c := NewChunkData(ChunkCoord{}, 32, 32)

	require.NoError(t, c.SetTile(tile.Decoration, 31, 0, tile.Flower))
	id, err := c.GetTile(tile.Decoration, 31, 0)
	require.NoError(t, err)
	assert.Equal(t, tile.Flower, id)
	assert.True(t, c.IsDirty())

	// Остальные слои не затронуты
	id, _ = c.GetTile(tile.Ground, 31, 0)
	assert.Equal(t, tile.Empty, id)

	c.MarkClean()
	assert.False(t, c.IsDirty())

	// Запись того же значения тоже считается изменением
	require.NoError(t, c.SetTile(tile.Decoration, 31, 0, tile.Flower))
	assert.True(t, c.IsDirty())
}

func TestChunkDataBounds(t *testing.T) {
	c := NewChunkData(ChunkCoord{}, 32, 32)

	cases := []struct {
		name  string
		layer tile.Layer
		x, y  int
		err   error
	}{
		{"x равен ширине", tile.Ground, 32, 0, ErrOutOfBounds},
		{"y равен высоте", tile.Ground, 0, 32, ErrOutOfBounds},
		{"отрицательный x", tile.Ground, -1, 0, ErrOutOfBounds},
		{"слой за пределами", tile.MaxLayers, 0, 0, ErrInvalidLayer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := c.SetTile(tc.layer, tc.x, tc.y, tile.Dirt)
			assert.ErrorIs(t, err, tc.err)
			_, err = c.GetTile(tc.layer, tc.x, tc.y)
			assert.ErrorIs(t, err, tc.err)
		})
	}
	assert.False(t, c.IsDirty(), "ошибочная запись не должна менять состояние")
	for _, l := range tile.Layers {
		assert.Equal(t, 32*32, c.Count(l, tile.Empty))
	}
}

func TestChunkDataCloneEqual(t *testing.T) {
	a := CheckerGenerator{Width: 8, Height: 8}.Generate(ChunkCoord{X: 1, Y: 1})
	b := a.Clone()
	assert.True(t, a.Equal(b))

	require.NoError(t, b.SetTile(tile.Overlay, 0, 0, tile.FogBlack))
	assert.False(t, a.Equal(b))
	assert.Equal(t, tile.Empty, a.Layer(tile.Overlay)[0], "клон не должен разделять память")

	assert.ErrorIs(t, a.SetLayer(tile.Ground, make([]tile.ID, 3)), ErrCorruptChunk)
}

func BenchmarkSetTile(b *testing.B) {
	c := NewChunkData(ChunkCoord{}, 32, 32)
	for i := 0; i < b.N; i++ {
		_ = c.SetTile(tile.Ground, i%32, (i/32)%32, tile.Dirt)
	}
}
