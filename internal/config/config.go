package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/tileworld/internal/world"
)

// Config корневая структура конфигурации
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Sim       SimConfig       `yaml:"sim"`
}

type WorldConfig struct {
	Seed              int64   `yaml:"seed"`
	Generator         string  `yaml:"generator"` // perlin | checker
	ChunkWidth        int     `yaml:"chunk_width"`
	ChunkHeight       int     `yaml:"chunk_height"`
	TileSize          float64 `yaml:"tile_size"`
	MinLoadRadius     int     `yaml:"min_load_radius"`
	Buffer            int     `yaml:"buffer"`
	ViewportWidth     float64 `yaml:"viewport_width"`
	ViewportHeight    float64 `yaml:"viewport_height"`
	DecorationDensity float64 `yaml:"decoration_density"`
	// ParkUnloadedEdits откладывает правки незагруженных чанков вместо отбрасывания
	ParkUnloadedEdits bool `yaml:"park_unloaded_edits"`
	MaxParkedPerChunk int  `yaml:"max_parked_per_chunk"`
	MaxParkedTotal    int  `yaml:"max_parked_total"`
}

type StorageConfig struct {
	Backend    string      `yaml:"backend"` // file | badger | redis | memory
	Dir        string      `yaml:"dir"`
	Compress   bool        `yaml:"compress"`
	CacheBytes int64       `yaml:"cache_bytes"` // 0 - без кеша
	Redis      RedisConfig `yaml:"redis"`
	// NATSURL рассылка изменений между узлами с общим хранилищем, нужна только вместе с кешем
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"` // пусто - только консоль
}

type ServerConfig struct {
	DebugEnabled bool `yaml:"debug_enabled"`
	DebugPort    int  `yaml:"debug_port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type SimConfig struct {
	TickMillis      int `yaml:"tick_ms"`
	AutosaveSeconds int `yaml:"autosave_seconds"`
	Walkers         int `yaml:"walkers"`
	StatsEvery      int `yaml:"stats_every_steps"`
}

// Default конфигурация по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:              1,
			Generator:         "perlin",
			ChunkWidth:        world.DefaultChunkSize,
			ChunkHeight:       world.DefaultChunkSize,
			TileSize:          world.DefaultTileSize,
			MinLoadRadius:     world.DefaultMinLoadRadius,
			Buffer:            world.DefaultBuffer,
			ViewportWidth:     world.DefaultViewportWidth,
			ViewportHeight:    world.DefaultViewportHeight,
			MaxParkedPerChunk: world.DefaultMaxParkedPerChunk,
			MaxParkedTotal:    world.DefaultMaxParkedTotal,
		},
		Storage: StorageConfig{
			Backend: "file",
			Dir:     "saves/world",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "tileworld:",
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{DebugEnabled: true},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "tileworld",
		},
		Sim: SimConfig{
			TickMillis:      50,
			AutosaveSeconds: 30,
			Walkers:         3,
			StatsEvery:      100,
		},
	}
}

// Load читает YAML поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV TILEWORLD_CONFIG; если и его
// нет, возвращает значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("TILEWORLD_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv переменные окружения для значений, которые удобно менять без файла
func (c *Config) applyEnv() {
	if v := os.Getenv("TILEWORLD_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.World.Seed = seed
		}
	}
	if v := os.Getenv("TILEWORLD_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("TILEWORLD_SAVE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("TILEWORLD_REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("TILEWORLD_NATS_URL"); v != "" {
		c.Storage.NATSURL = v
	}
}

// Validate проверяет значения
func (c *Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("world: %w", err)
	}
	switch c.World.Generator {
	case "perlin", "checker":
	default:
		return fmt.Errorf("world.generator: неизвестный генератор %q", c.World.Generator)
	}
	switch c.Storage.Backend {
	case "file", "badger", "redis", "memory":
	default:
		return fmt.Errorf("storage.backend: неизвестное хранилище %q", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Backend != "redis" && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir обязателен для %s", c.Storage.Backend)
	}
	if c.Storage.NATSURL != "" && c.Storage.CacheBytes <= 0 {
		return fmt.Errorf("storage.nats_url без storage.cache_bytes не имеет смысла")
	}
	if c.Sim.TickMillis <= 0 {
		return fmt.Errorf("sim.tick_ms должен быть положительным")
	}
	return nil
}

// Geometry геометрия чанков
func (c *Config) Geometry() world.Geometry {
	return world.Geometry{ChunkWidth: c.World.ChunkWidth, ChunkHeight: c.World.ChunkHeight, TileSize: c.World.TileSize}
}

// Policy политика загрузки
func (c *Config) Policy() world.Policy {
	return world.Policy{
		MinLoadRadius:  c.World.MinLoadRadius,
		Buffer:         c.World.Buffer,
		ViewportWidth:  c.World.ViewportWidth,
		ViewportHeight: c.World.ViewportHeight,
		Geometry:       c.Geometry(),
	}
}

// Tick период шага симуляции
func (s SimConfig) Tick() time.Duration {
	return time.Duration(s.TickMillis) * time.Millisecond
}

// Autosave период автосохранения, 0 - выключено
func (s SimConfig) Autosave() time.Duration {
	return time.Duration(s.AutosaveSeconds) * time.Second
}

// TTL срок жизни записей Redis
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// GetDebugPort возвращает порт отладочного API с поддержкой fallback значений
func (s *ServerConfig) GetDebugPort() int {
	return getPortWithEnvFallback(s.DebugPort, "TILEWORLD_DEBUG_PORT", 8089)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}
