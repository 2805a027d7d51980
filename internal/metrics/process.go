package metrics

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessMetrics сведения о процессе сервера
type ProcessMetrics struct {
	StartTime time.Time
	proc      *process.Process

	cpu    *prometheus.Desc
	rss    *prometheus.Desc
	uptime *prometheus.Desc
}

// NewProcessMetrics метрики текущего процесса
func NewProcessMetrics(namespace string) (*ProcessMetrics, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("ошибка доступа к процессу: %w", err)
	}
	return &ProcessMetrics{
		StartTime: time.Now(),
		proc:      proc,
		cpu: prometheus.NewDesc(prometheus.BuildFQName(namespace, "process", "cpu_percent"),
			"Загрузка CPU процессом в процентах.", nil, nil),
		rss: prometheus.NewDesc(prometheus.BuildFQName(namespace, "process", "rss_bytes"),
			"Резидентная память процесса.", nil, nil),
		uptime: prometheus.NewDesc(prometheus.BuildFQName(namespace, "process", "uptime_seconds"),
			"Время работы процесса.", nil, nil),
	}, nil
}

// GetUptime возвращает время работы в читаемом виде
func (pm *ProcessMetrics) GetUptime() string {
	uptime := time.Since(pm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	}
	return fmt.Sprintf("%dс", seconds)
}

// GetCPUUsage загрузка CPU процессом в процентах.
// Если метрика процесса недоступна, возвращает системную.
func (pm *ProcessMetrics) GetCPUUsage() (float64, error) {
	cpuPercent, err := pm.proc.CPUPercent()
	if err != nil {
		cpuPercents, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil || len(cpuPercents) == 0 {
			return 0, err
		}
		return cpuPercents[0], nil
	}
	return cpuPercent, nil
}

// GetMemoryStats статистика памяти Go и процесса
func (pm *ProcessMetrics) GetMemoryStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := map[string]interface{}{
		"alloc_mb":      float64(m.Alloc) / 1024 / 1024,
		"heap_alloc_mb": float64(m.HeapAlloc) / 1024 / 1024,
		"sys_mb":        float64(m.Sys) / 1024 / 1024,
		"num_gc":        m.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}
	if mi, err := pm.proc.MemoryInfo(); err == nil {
		stats["rss_mb"] = float64(mi.RSS) / 1024 / 1024
	}
	return stats
}

func (pm *ProcessMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- pm.cpu
	ch <- pm.rss
	ch <- pm.uptime
}

func (pm *ProcessMetrics) Collect(ch chan<- prometheus.Metric) {
	if v, err := pm.GetCPUUsage(); err == nil {
		ch <- prometheus.MustNewConstMetric(pm.cpu, prometheus.GaugeValue, v)
	}
	if mi, err := pm.proc.MemoryInfo(); err == nil {
		ch <- prometheus.MustNewConstMetric(pm.rss, prometheus.GaugeValue, float64(mi.RSS))
	}
	ch <- prometheus.MustNewConstMetric(pm.uptime, prometheus.GaugeValue, time.Since(pm.StartTime).Seconds())
}
