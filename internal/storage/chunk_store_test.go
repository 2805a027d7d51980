package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/world"
)

func TestChunkStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			backend := factory()
			defer backend.Close()
			cs := NewChunkStore(Codec{Width: 32, Height: 32}, backend)

			c := world.ChunkCoord{X: -2, Y: 9}
			_, err := cs.Load(ctx, c)
			assert.ErrorIs(t, err, world.ErrChunkNotFound)

			orig := sampleChunk(t, c)
			require.NoError(t, cs.Save(ctx, c, orig))
			assert.True(t, orig.IsDirty(), "Save не сбрасывает dirty")

			got, err := cs.Load(ctx, c)
			require.NoError(t, err)
			assert.True(t, orig.Equal(got))

			ok, err := cs.Exists(ctx, c)
			require.NoError(t, err)
			assert.True(t, ok)

			coords, err := cs.Coords(ctx)
			require.NoError(t, err)
			assert.Equal(t, []world.ChunkCoord{c}, coords)

			require.NoError(t, cs.Delete(ctx, c))
			_, err = cs.Load(ctx, c)
			assert.ErrorIs(t, err, world.ErrChunkNotFound)
		})
	}
}

func TestChunkStoreCoordinateMismatch(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	codec := Codec{Width: 32, Height: 32}
	cs := NewChunkStore(codec, backend)

	// Запись чанка (1,1) лежит под ключом (2,2)
	b, err := codec.Encode(sampleChunk(t, world.ChunkCoord{X: 1, Y: 1}))
	require.NoError(t, err)
	require.NoError(t, backend.Put(ctx, world.ChunkCoord{X: 2, Y: 2}, b))

	_, err = cs.Load(ctx, world.ChunkCoord{X: 2, Y: 2})
	assert.ErrorIs(t, err, world.ErrCorruptChunk)

	err = cs.Save(ctx, world.ChunkCoord{X: 5, Y: 5}, sampleChunk(t, world.ChunkCoord{}))
	assert.Error(t, err)
}

func TestChunkStoreUpgrade(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	codec := Codec{Width: 32, Height: 32}
	cs := NewChunkStore(codec, backend)

	c := world.ChunkCoord{X: 3, Y: 3}
	orig := sampleChunk(t, c)
	v1, err := codec.EncodeV1(orig)
	require.NoError(t, err)
	require.NoError(t, backend.Put(ctx, c, v1))

	loaded, err := cs.Load(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, world.OriginUpgraded, loaded.Origin)

	upgraded, err := cs.Upgrade(ctx, c)
	require.NoError(t, err)
	assert.True(t, upgraded)

	raw, err := backend.Get(ctx, c)
	require.NoError(t, err)
	h, err := ReadHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, FormatV2, h.Version)

	upgraded, err = cs.Upgrade(ctx, c)
	require.NoError(t, err)
	assert.False(t, upgraded, "запись уже в текущем формате")

	loaded, err = cs.Load(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, orig.Layer(tile.Ground), loaded.Layer(tile.Ground))
}

// Полный цикл: загрузчик пишет через ChunkStore на диск и читает обратно
func TestChunkStoreWithLoader(t *testing.T) {
	ctx := context.Background()
	dir := setupTestDir(t)
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	p := world.DefaultPolicy()
	cs := NewChunkStore(NewCodec(p.Geometry), fs)

	gen := world.NewPerlinGenerator(42, 32, 32)
	l := world.NewLoader(p, gen, cs, nopRenderer{})
	m := world.NewManager()
	pipe := world.NewPipeline(p.Geometry, nopRenderer{})

	l.Step(ctx, m, p.Geometry.ChunkOrigin(world.ChunkCoord{}), 1)
	m.QueueTileModification(80, 80, tile.Flower, tile.Decoration)
	require.Equal(t, 1, pipe.Apply(m).Applied)
	require.NoError(t, l.UnloadAll(ctx, m))

	ok, err := cs.Exists(ctx, world.ChunkCoord{})
	require.NoError(t, err)
	assert.True(t, ok)
	saved, err := cs.Coords(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 1, "сохраняются только изменённые чанки")

	m2 := world.NewManager()
	l.Step(ctx, m2, p.Geometry.ChunkOrigin(world.ChunkCoord{}), 1)
	lc, ok := m2.Get(world.ChunkCoord{})
	require.True(t, ok)
	id, err := lc.Data.GetTile(tile.Decoration, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, tile.Flower, id)
}

type nopRenderer struct{}

func (nopRenderer) SpawnLayer(world.ChunkCoord, tile.Layer, float64, int, []tile.ID) world.Handle {
	return 1
}
func (nopRenderer) UpdateTile(world.Handle, int, int, tile.ID) {}
func (nopRenderer) Despawn(world.Handle)                       {}
