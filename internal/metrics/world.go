package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/tileworld/internal/world"
)

// StatsSource источник снимка состояния мира
type StatsSource interface {
	Stats() world.Stats
}

// WorldCollector снимает состояние мира в момент опроса Prometheus,
// поэтому шагу мира не нужно ничего обновлять.
type WorldCollector struct {
	source StatsSource

	chunks  *prometheus.Desc
	pending *prometheus.Desc
	parked  *prometheus.Desc
	events  *prometheus.Desc
	edits   *prometheus.Desc
}

// NewWorldCollector создаёт коллектор с префиксом namespace
func NewWorldCollector(namespace string, source StatsSource) *WorldCollector {
	return &WorldCollector{
		source: source,
		chunks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "world", "chunks"),
			"Число чанков в памяти по состоянию.",
			[]string{"state"}, nil),
		pending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "world", "tile_edits_pending"),
			"Изменения тайлов в очереди.",
			nil, nil),
		parked: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "world", "tile_edits_parked"),
			"Отложенные изменения незагруженных чанков.",
			nil, nil),
		events: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "world", "chunk_events_total"),
			"События жизненного цикла чанков.",
			[]string{"event"}, nil),
		edits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "world", "tile_edits_total"),
			"Изменения тайлов по результату.",
			[]string{"result"}, nil),
	}
}

func (c *WorldCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.chunks
	ch <- c.pending
	ch <- c.parked
	ch <- c.events
	ch <- c.edits
}

func (c *WorldCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.chunks, prometheus.GaugeValue, float64(s.Loaded), "loaded")
	ch <- prometheus.MustNewConstMetric(c.chunks, prometheus.GaugeValue, float64(s.Dirty), "dirty")
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.Pending))
	ch <- prometheus.MustNewConstMetric(c.parked, prometheus.GaugeValue, float64(s.ParkedNow))

	events := map[string]uint64{
		"generated":         s.Generated,
		"loaded_from_store": s.LoadedFromStore,
		"upgraded":          s.Upgraded,
		"corrupt":           s.Corrupt,
		"load_error":        s.LoadErrors,
		"saved":             s.Saved,
		"save_failure":      s.SaveFailures,
		"unloaded":          s.Unloaded,
	}
	for name, v := range events {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(v), name)
	}

	edits := map[string]uint64{
		"applied":  s.Applied,
		"dropped":  s.Dropped,
		"parked":   s.Counters.Parked,
		"replayed": s.Replayed,
	}
	for name, v := range edits {
		ch <- prometheus.MustNewConstMetric(c.edits, prometheus.CounterValue, float64(v), name)
	}
}

// StepMetrics метрики шагов загрузчика
type StepMetrics struct {
	duration prometheus.Histogram
	loads    prometheus.Counter
	unloads  prometheus.Counter
	failed   prometheus.Counter
}

// NewStepMetrics создаёт и регистрирует метрики шагов
func NewStepMetrics(namespace string, reg prometheus.Registerer) (*StepMetrics, error) {
	m := &StepMetrics{
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "step_duration_seconds",
			Help:      "Длительность шага мира.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "step_loads_total",
			Help:      "Чанки, загруженные шагами.",
		}),
		unloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "step_unloads_total",
			Help:      "Чанки, выгруженные шагами.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "world",
			Name:      "step_unload_failures_total",
			Help:      "Чанки, оставленные в памяти из-за ошибки сохранения.",
		}),
	}
	for _, c := range []prometheus.Collector{m.duration, m.loads, m.unloads, m.failed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe учитывает итог шага
func (m *StepMetrics) Observe(d time.Duration, res world.StepResult) {
	m.duration.Observe(d.Seconds())
	m.loads.Add(float64(res.Loaded))
	m.unloads.Add(float64(res.Unloaded))
	m.failed.Add(float64(res.Failed))
}
