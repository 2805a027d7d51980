package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/vec"
)

func TestGeometryConversions(t *testing.T) {
	g := DefaultGeometry()
	require.NoError(t, g.Validate())
	assert.Equal(t, 256.0, g.ChunkPixelWidth())

	cases := []struct {
		name  string
		p     vec.Vec2Float
		chunk ChunkCoord
		x, y  int
	}{
		{"начало координат", vec.Vec2Float{X: 0, Y: 0}, ChunkCoord{0, 0}, 0, 0},
		{"отрицательная точка", vec.Vec2Float{X: -8, Y: -8}, ChunkCoord{-1, -1}, 31, 31},
		{"чуть меньше нуля", vec.Vec2Float{X: -0.1, Y: 0}, ChunkCoord{-1, 0}, 31, 0},
		{"середина чанка", vec.Vec2Float{X: 128, Y: 128}, ChunkCoord{0, 0}, 16, 16},
		{"граница чанка", vec.Vec2Float{X: 256, Y: 511.9}, ChunkCoord{1, 1}, 0, 31},
		{"тайл (10,10)", vec.Vec2Float{X: 80, Y: 80}, ChunkCoord{0, 0}, 10, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.chunk, g.WorldToChunk(tc.p))
			c, x, y := g.WorldToLocal(tc.p)
			assert.Equal(t, tc.chunk, c)
			assert.Equal(t, tc.x, x)
			assert.Equal(t, tc.y, y)
		})
	}

	assert.Equal(t, vec.Vec2Float{X: -256, Y: 512}, g.ChunkOrigin(ChunkCoord{X: -1, Y: 2}))
	center := g.TileCenter(ChunkCoord{X: -1, Y: 0}, 31, 0)
	c, x, y := g.WorldToLocal(center)
	assert.Equal(t, ChunkCoord{X: -1, Y: 0}, c)
	assert.Equal(t, 31, x)
	assert.Equal(t, 0, y)
}

func TestGeometryValidate(t *testing.T) {
	assert.Error(t, Geometry{ChunkWidth: 0, ChunkHeight: 32, TileSize: 8}.Validate())
	assert.Error(t, Geometry{ChunkWidth: 32, ChunkHeight: 32, TileSize: 0}.Validate())
}

func TestChunkCoordDistances(t *testing.T) {
	a := ChunkCoord{X: 0, Y: 0}
	b := ChunkCoord{X: 3, Y: -4}
	assert.Equal(t, 4, a.Chebyshev(b))
	assert.Equal(t, 7, a.Manhattan(b))
	assert.Equal(t, "(3,-4)", b.String())

	sq := a.InRadius(2)
	assert.Len(t, sq, 25)
	for _, c := range sq {
		assert.LessOrEqual(t, a.Chebyshev(c), 2)
	}
	assert.Equal(t, ChunkCoord{X: -2, Y: -2}, sq[0])
	assert.Equal(t, []ChunkCoord{a}, a.InRadius(0))
	assert.Nil(t, a.InRadius(-1))
}
