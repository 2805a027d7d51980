package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/tileworld/internal/api"
	"github.com/annel0/tileworld/internal/behavior"
	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/game"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/observability"
	"github.com/annel0/tileworld/internal/vec"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML-конфигурации (по умолчанию TILEWORLD_CONFIG)")
		envFile    = flag.String("env", ".env", "файл переменных окружения")
		steps      = flag.Uint64("steps", 0, "число шагов, 0 - до сигнала")
		seed       = flag.Int64("seed", 0, "сид нового мира, 0 - из конфигурации")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️ Не удалось прочитать %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *seed != 0 {
		cfg.World.Seed = *seed
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Printf("⚠️ %v, используется INFO", err)
	}
	logOpts := logging.OptionsFromEnv(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Logging.Dir,
	})
	if err := logging.InitDefaultLogger(logOpts); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🎮 Запуск tileworld: генератор=%s, хранилище=%s", cfg.World.Generator, cfg.Storage.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, observability.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    true,
	})
	if err != nil {
		logging.Warn("Трассировка отключена: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	w, err := game.OpenWorld(ctx, cfg)
	if err != nil {
		logging.Error("❌ Ошибка открытия мира: %v", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	stepMetrics, err := metrics.NewStepMetrics("tileworld", reg)
	if err != nil {
		logging.Error("❌ Ошибка регистрации метрик: %v", err)
		os.Exit(1)
	}

	var debug *api.DebugServer
	if cfg.Server.DebugEnabled {
		debug, err = api.NewDebugServer(api.Config{
			Port:     fmt.Sprintf(":%d", cfg.Server.GetDebugPort()),
			World:    w.Engine,
			Geometry: cfg.Geometry(),
			Registry: reg,
		})
		if err != nil {
			logging.Error("❌ Ошибка создания отладочного API: %v", err)
			os.Exit(1)
		}
		go func() {
			if err := debug.Start(); err != nil {
				logging.Error("❌ Отладочный API остановлен: %v", err)
			}
		}()
		logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetDebugPort())
		logging.Info("   🗺  Сетка чанков: http://localhost:%d/debug/grid", cfg.Server.GetDebugPort())
	}

	// Камера бродит по широкой восьмёрке, улитки ползают вокруг начала координат
	chunkSpan := cfg.Geometry().ChunkPixelWidth()
	camWalker := behavior.NewWalker(vec.Vec2Float{}, chunkSpan*12, 0.002)
	behaviors := make([]game.Behavior, 0, cfg.Sim.Walkers)
	for i := 0; i < cfg.Sim.Walkers; i++ {
		radius := chunkSpan * float64(i+1)
		behaviors = append(behaviors, behavior.NewSnail(w.Engine, vec.Vec2Float{}, radius, 0.01, cfg.World.Seed+int64(i)))
	}

	statsEvery := uint64(max(cfg.Sim.StatsEvery, 1))
	runErr := w.Engine.Run(ctx, game.RunOptions{
		Tick:     cfg.Sim.Tick(),
		Autosave: cfg.Sim.Autosave(),
		MaxSteps: *steps,
		Camera: game.CameraFunc(func(uint64) game.Camera {
			return game.NewCamera(camWalker.Next())
		}),
		Behaviors: behaviors,
		OnStep: func(rep game.StepReport) {
			stepMetrics.Observe(rep.Duration, rep.Loader)
			if rep.Step%statsEvery == 0 {
				logWorldStats(w.Engine)
			}
		},
	})
	if runErr != nil {
		logging.Error("Цикл мира завершился с ошибкой: %v", runErr)
	}

	logging.Info("📡 Завершение работы...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if debug != nil {
		if err := debug.Stop(shutdownCtx); err != nil {
			logging.Error("❌ Ошибка остановки отладочного API: %v", err)
		}
	}
	if err := w.Close(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка сохранения мира: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Warn("Ошибка остановки трассировки: %v", err)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func logWorldStats(e *game.Engine) {
	stats := e.Stats()
	logging.Info("📊 %s", stats)
	logging.Debug("\n%s", e.Grid())
	if stats.ParkedNow > 0 {
		logging.Debug("Отложенных правок: %d", stats.ParkedNow)
	}
}
