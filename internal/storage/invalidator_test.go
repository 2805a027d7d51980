package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/world"
)

// localBus шина в памяти, заменяющая NATS в тестах
type localBus struct {
	mu       sync.Mutex
	handlers map[int]func(world.ChunkCoord)
}

type busNode struct {
	bus *localBus
	id  int
}

func (b *localBus) node(id int) *busNode { return &busNode{bus: b, id: id} }

func (n *busNode) Publish(_ context.Context, c world.ChunkCoord) error {
	n.bus.mu.Lock()
	defer n.bus.mu.Unlock()
	for id, h := range n.bus.handlers {
		if id != n.id {
			h(c)
		}
	}
	return nil
}

func (n *busNode) Subscribe(h func(world.ChunkCoord)) error {
	n.bus.mu.Lock()
	defer n.bus.mu.Unlock()
	if n.bus.handlers == nil {
		n.bus.handlers = make(map[int]func(world.ChunkCoord))
	}
	n.bus.handlers[n.id] = h
	return nil
}

func (n *busNode) Close() error { return nil }

func TestCachedStoreInvalidation(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryStore()
	bus := &localBus{}

	a, err := NewCachedStore(shared, 1<<20)
	require.NoError(t, err)
	require.NoError(t, a.SetInvalidator(bus.node(1)))
	b, err := NewCachedStore(shared, 1<<20)
	require.NoError(t, err)
	require.NoError(t, b.SetInvalidator(bus.node(2)))

	c := world.ChunkCoord{X: 1, Y: -1}
	require.NoError(t, a.Put(ctx, c, []byte("v1")))
	got, err := b.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got, "b закешировал v1")

	require.NoError(t, a.Put(ctx, c, []byte("v2")))
	got, err = b.Get(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got, "запись через a сбросила кеш b")

	require.NoError(t, a.Delete(ctx, c))
	_, err = b.Get(ctx, c)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestNATSInvalidator(t *testing.T) {
	url := os.Getenv("TILEWORLD_NATS_URL")
	if url == "" {
		t.Skip("TILEWORLD_NATS_URL не задан")
	}

	a, err := NewNATSInvalidator(NATSConfig{URL: url, Subject: "tileworld.test.invalidate"})
	require.NoError(t, err)
	defer a.Close()
	b, err := NewNATSInvalidator(NATSConfig{URL: url, Subject: "tileworld.test.invalidate"})
	require.NoError(t, err)
	defer b.Close()

	got := make(chan world.ChunkCoord, 4)
	require.NoError(t, a.Subscribe(func(c world.ChunkCoord) { got <- c }))
	require.NoError(t, b.Subscribe(func(c world.ChunkCoord) { got <- c }))
	assert.Error(t, b.Subscribe(func(world.ChunkCoord) {}), "повторная подписка")

	c := world.ChunkCoord{X: 3, Y: 4}
	require.NoError(t, a.Publish(context.Background(), c))

	select {
	case recv := <-got:
		assert.Equal(t, c, recv)
	case <-time.After(2 * time.Second):
		t.Fatal("сообщение не получено")
	}
	select {
	case <-got:
		t.Fatal("узел получил собственное сообщение")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, int64(1), a.Metrics()["published_count"])
}
