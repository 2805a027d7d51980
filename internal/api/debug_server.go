package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/tileworld/internal/behavior"
	"github.com/annel0/tileworld/internal/game"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/metrics"
	"github.com/annel0/tileworld/internal/middleware"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// WorldView то, что отладочный API читает и меняет в мире. *game.Engine подходит.
type WorldView interface {
	Stats() world.Stats
	LastStep() game.StepReport
	Radii() world.Radii
	Grid() string
	Overview(cellSize int) []world.OverviewCell
	ChunkSnapshot(c world.ChunkCoord) (*world.ChunkData, bool)
	LoadedCoords() []world.ChunkCoord
	SaveDirty(ctx context.Context) (int, error)
	world.TileEditor
}

// Config конфигурация отладочного сервера
type Config struct {
	Port     string // ":8089"
	Service  string // префикс метрик и имя сервиса в трассах
	World    WorldView
	Geometry world.Geometry
	// Registry реестр метрик. nil - новый реестр.
	Registry *prometheus.Registry
}

// GenericResponse общий формат JSON-ответа
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// DebugServer HTTP API для наблюдения за миром
type DebugServer struct {
	router   *gin.Engine
	server   *http.Server
	world    WorldView
	geometry world.Geometry
	process  *metrics.ProcessMetrics
	log      *logging.Logger
}

// NewDebugServer создаёт сервер и регистрирует метрики мира и процесса
func NewDebugServer(cfg Config) (*DebugServer, error) {
	if cfg.World == nil {
		return nil, errors.New("не задан мир")
	}
	if cfg.Port == "" {
		cfg.Port = ":8089"
	}
	if cfg.Service == "" {
		cfg.Service = "tileworld"
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// otelgin первым, чтобы логгер видел trace-id span'а
	router.Use(otelgin.Middleware(cfg.Service))
	router.Use(middleware.NewRequestLogger().Handler())

	promMw, err := middleware.NewPrometheusMiddleware(cfg.Service, reg)
	if err != nil {
		return nil, fmt.Errorf("ошибка регистрации HTTP-метрик: %w", err)
	}
	router.Use(promMw.Handler())

	process, err := metrics.NewProcessMetrics(cfg.Service)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(process); err != nil {
		return nil, err
	}
	if err := reg.Register(metrics.NewWorldCollector(cfg.Service, cfg.World)); err != nil {
		return nil, err
	}
	promMw.RegisterMetricsEndpoint(router, reg)

	ds := &DebugServer{
		router:   router,
		server:   &http.Server{Addr: cfg.Port, Handler: router, ReadHeaderTimeout: 5 * time.Second},
		world:    cfg.World,
		geometry: cfg.Geometry,
		process:  process,
		log:      logging.GetServerLogger(),
	}
	ds.setupRoutes()
	return ds, nil
}

func (ds *DebugServer) setupRoutes() {
	ds.router.GET("/health", ds.handleHealth)

	debug := ds.router.Group("/debug")
	{
		debug.GET("/stats", ds.handleStats)
		debug.GET("/grid", ds.handleGrid)
		debug.GET("/overview", ds.handleOverview)
		debug.GET("/chunks", ds.handleChunks)
		debug.GET("/chunks/:x/:y", ds.handleChunk)
		debug.POST("/paint", ds.handlePaint)
		debug.POST("/save", ds.handleSave)
	}
}

// Handler корневой http.Handler, для тестов и встраивания
func (ds *DebugServer) Handler() http.Handler {
	return ds.router
}

// Start запускает сервер. Блокирует до Stop.
func (ds *DebugServer) Start() error {
	ds.log.Info("🔧 Отладочный API слушает %s", ds.server.Addr)
	if err := ds.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает сервер, дожидаясь активных запросов
func (ds *DebugServer) Stop(ctx context.Context) error {
	return ds.server.Shutdown(ctx)
}

func (ds *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats состояние мира, последний шаг и сведения о процессе
func (ds *DebugServer) handleStats(c *gin.Context) {
	cpuPercent, _ := ds.process.GetCPUUsage()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"world":     ds.world.Stats(),
			"last_step": ds.world.LastStep(),
			"radii":     ds.world.Radii(),
			"server": gin.H{
				"uptime":      ds.process.GetUptime(),
				"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
				"server_time": time.Now().Unix(),
			},
			"memory_details": ds.process.GetMemoryStats(),
		},
	})
}

func (ds *DebugServer) handleGrid(c *gin.Context) {
	c.String(http.StatusOK, ds.world.Grid())
}

func (ds *DebugServer) handleOverview(c *gin.Context) {
	cell := 4
	if v := c.Query("cell"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			ds.badRequest(c, "cell должен быть положительным числом")
			return
		}
		cell = n
	}
	cells := ds.world.Overview(cell)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Обзор мира",
		Data:    gin.H{"cell_size": cell, "cells": cells},
	})
}

func (ds *DebugServer) handleChunks(c *gin.Context) {
	coords := ds.world.LoadedCoords()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Загруженные чанки",
		Data:    gin.H{"chunks": coords, "total": len(coords)},
	})
}

// chunkLayerView слой чанка в ответе
type chunkLayerView struct {
	Layer string    `json:"layer"`
	Tiles []tile.ID `json:"tiles,omitempty"`
	ASCII string    `json:"ascii,omitempty"`
}

// handleChunk содержимое загруженного чанка; ?layer= ограничивает слои, ?format=ascii рисует символами
func (ds *DebugServer) handleChunk(c *gin.Context) {
	x, errX := strconv.ParseInt(c.Param("x"), 10, 32)
	y, errY := strconv.ParseInt(c.Param("y"), 10, 32)
	if errX != nil || errY != nil {
		ds.badRequest(c, "координаты чанка должны быть целыми")
		return
	}
	coord := world.ChunkCoord{X: int32(x), Y: int32(y)}

	layers := tile.Layers[:]
	if name := c.Query("layer"); name != "" {
		l, err := tile.ParseLayer(name)
		if err != nil {
			ds.badRequest(c, err.Error())
			return
		}
		layers = []tile.Layer{l}
	}

	data, ok := ds.world.ChunkSnapshot(coord)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("чанк %s не загружен", coord),
		})
		return
	}

	ascii := c.Query("format") == "ascii"
	views := make([]chunkLayerView, 0, len(layers))
	for _, l := range layers {
		v := chunkLayerView{Layer: l.String()}
		if ascii {
			v.ASCII = asciiLayer(data, l)
		} else {
			v.Tiles = data.Layer(l)
		}
		views = append(views, v)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Чанк получен",
		Data: gin.H{
			"coord":  coord,
			"width":  data.Width,
			"height": data.Height,
			"origin": data.Origin.String(),
			"dirty":  data.IsDirty(),
			"layers": views,
		},
	})
}

// PaintRequest запрос покраски тайлов кистью
type PaintRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Tile   string  `json:"tile" binding:"required"`
	Layer  string  `json:"layer"`
	Radius int     `json:"radius"`
}

// maxPaintRadius ограничивает размер одной покраски
const maxPaintRadius = 16

// handlePaint ставит изменения в очередь. Применятся они на следующем шаге мира.
func (ds *DebugServer) handlePaint(c *gin.Context) {
	var req PaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ds.badRequest(c, "некорректный запрос: "+err.Error())
		return
	}

	id, ok := tile.Default().Lookup(req.Tile)
	if !ok {
		ds.badRequest(c, fmt.Sprintf("неизвестный тайл %q", req.Tile))
		return
	}
	layer := tile.Ground
	if req.Layer != "" {
		l, err := tile.ParseLayer(req.Layer)
		if err != nil {
			ds.badRequest(c, err.Error())
			return
		}
		layer = l
	}
	if req.Radius < 0 || req.Radius > maxPaintRadius {
		ds.badRequest(c, fmt.Sprintf("radius должен быть в диапазоне 0..%d", maxPaintRadius))
		return
	}

	brush := behavior.Brush{Tile: id, Layer: layer, Radius: req.Radius, TileSize: ds.geometry.TileSize}
	n := brush.Paint(ds.world, vec.Vec2Float{X: req.X, Y: req.Y})
	ds.log.Debug("🖌 Покраска %s/%s в (%.1f, %.1f), %d тайлов", id.Name(), layer, req.X, req.Y, n)

	c.JSON(http.StatusAccepted, GenericResponse{
		Success: true,
		Message: "Изменения поставлены в очередь",
		Data:    gin.H{"queued": n},
	})
}

func (ds *DebugServer) handleSave(c *gin.Context) {
	n, err := ds.world.SaveDirty(c.Request.Context())
	if err != nil {
		ds.log.Error("Ошибка сохранения по запросу: %v", err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Ошибка сохранения: " + err.Error(),
			Data:    gin.H{"saved": n},
		})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Мир сохранён",
		Data:    gin.H{"saved": n},
	})
}

func (ds *DebugServer) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: msg})
}

// asciiLayer рисует слой символами, верхняя строка - максимальный y
func asciiLayer(data *world.ChunkData, l tile.Layer) string {
	tiles := data.Layer(l)
	buf := make([]rune, 0, len(tiles)+data.Height)
	for y := data.Height - 1; y >= 0; y-- {
		for x := 0; x < data.Width; x++ {
			buf = append(buf, tiles[y*data.Width+x].Glyph())
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
