package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/tileworld/internal/world"
)

type staticStats world.Stats

func (s staticStats) Stats() world.Stats { return world.Stats(s) }

func TestWorldCollector(t *testing.T) {
	src := staticStats{Loaded: 121, Dirty: 2, Pending: 3, ParkedNow: 6}
	src.Generated = 100
	src.LoadedFromStore = 20
	src.Saved = 7
	src.Corrupt = 1
	src.Applied = 40
	src.Dropped = 4
	src.Counters.Parked = 9
	src.Replayed = 2

	c := NewWorldCollector("tileworld", src)
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP tileworld_world_chunks Число чанков в памяти по состоянию.
# TYPE tileworld_world_chunks gauge
tileworld_world_chunks{state="dirty"} 2
tileworld_world_chunks{state="loaded"} 121
# HELP tileworld_world_tile_edits_pending Изменения тайлов в очереди.
# TYPE tileworld_world_tile_edits_pending gauge
tileworld_world_tile_edits_pending 3
# HELP tileworld_world_tile_edits_parked Отложенные изменения незагруженных чанков.
# TYPE tileworld_world_tile_edits_parked gauge
tileworld_world_tile_edits_parked 6
# HELP tileworld_world_chunk_events_total События жизненного цикла чанков.
# TYPE tileworld_world_chunk_events_total counter
tileworld_world_chunk_events_total{event="corrupt"} 1
tileworld_world_chunk_events_total{event="generated"} 100
tileworld_world_chunk_events_total{event="load_error"} 0
tileworld_world_chunk_events_total{event="loaded_from_store"} 20
tileworld_world_chunk_events_total{event="save_failure"} 0
tileworld_world_chunk_events_total{event="saved"} 7
tileworld_world_chunk_events_total{event="unloaded"} 0
tileworld_world_chunk_events_total{event="upgraded"} 0
# HELP tileworld_world_tile_edits_total Изменения тайлов по результату.
# TYPE tileworld_world_tile_edits_total counter
tileworld_world_tile_edits_total{result="applied"} 40
tileworld_world_tile_edits_total{result="dropped"} 4
tileworld_world_tile_edits_total{result="parked"} 9
tileworld_world_tile_edits_total{result="replayed"} 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"tileworld_world_chunks",
		"tileworld_world_tile_edits_pending",
		"tileworld_world_tile_edits_parked",
		"tileworld_world_chunk_events_total",
		"tileworld_world_tile_edits_total",
	)
	assert.NoError(t, err, "накопительный parked и текущий parked_now не путаются")

	assert.Equal(t, 2+1+1+8+4, testutil.CollectAndCount(c), "2 состояния, очередь, отложенные, 8 событий, 4 результата правок")
}

func TestStepMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewStepMetrics("tileworld", reg)
	require.NoError(t, err)

	m.Observe(2*time.Millisecond, world.StepResult{Loaded: 121})
	m.Observe(time.Millisecond, world.StepResult{Loaded: 11, Unloaded: 11, Failed: 1})

	assert.Equal(t, 132.0, testutil.ToFloat64(m.loads))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.unloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failed))

	_, err = NewStepMetrics("tileworld", reg)
	assert.Error(t, err, "повторная регистрация отклоняется")
}

func TestProcessMetrics(t *testing.T) {
	pm, err := NewProcessMetrics("tileworld")
	require.NoError(t, err)

	assert.Equal(t, "0с", pm.GetUptime())
	pm.StartTime = time.Now().Add(-(26*time.Hour + 3*time.Minute))
	assert.Equal(t, "1д 2ч 3м 0с", pm.GetUptime())

	stats := pm.GetMemoryStats()
	assert.Contains(t, stats, "goroutines")

	assert.GreaterOrEqual(t, testutil.CollectAndCount(pm), 1, "uptime есть всегда")
}
