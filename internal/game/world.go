package game

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/logging"
	"github.com/annel0/tileworld/internal/render"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/world"
)

// World движок вместе с хранилищем и рендерером, собранные из конфигурации
type World struct {
	Engine   *Engine
	Renderer *render.Headless
	Chunks   *storage.ChunkStore
	Manifest storage.Manifest

	store storage.Store
}

// OpenStore открывает хранилище записей по конфигурации, с обёртками сжатия и кеша
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	var (
		s   storage.Store
		err error
	)
	switch cfg.Backend {
	case "file":
		s, err = storage.NewFileStore(cfg.Dir)
	case "badger":
		s, err = storage.NewBadgerStore(cfg.Dir)
	case "redis":
		s, err = storage.NewRedisStore(ctx, storage.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL(),
		})
	case "memory":
		s = storage.NewMemoryStore()
	default:
		return nil, fmt.Errorf("неизвестное хранилище %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия хранилища %s: %w", cfg.Backend, err)
	}

	if cfg.Compress {
		cs, err := storage.NewCompressedStore(s)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s = cs
	}
	if cfg.CacheBytes > 0 {
		cs, err := storage.NewCachedStore(s, cfg.CacheBytes)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		if cfg.NATSURL != "" {
			inv, err := storage.NewNATSInvalidator(storage.NATSConfig{URL: cfg.NATSURL, Subject: cfg.NATSSubject})
			if err != nil {
				_ = cs.Close()
				return nil, err
			}
			if err := cs.SetInvalidator(inv); err != nil {
				_ = inv.Close()
				_ = cs.Close()
				return nil, err
			}
		}
		s = cs
	}
	return s, nil
}

// NewGenerator генератор по имени из конфигурации
func NewGenerator(cfg config.WorldConfig) (world.Generator, error) {
	switch cfg.Generator {
	case "perlin":
		g := world.NewPerlinGenerator(cfg.Seed, cfg.ChunkWidth, cfg.ChunkHeight)
		g.DecorationDensity = cfg.DecorationDensity
		return g, nil
	case "checker":
		return world.CheckerGenerator{Width: cfg.ChunkWidth, Height: cfg.ChunkHeight}, nil
	}
	return nil, fmt.Errorf("неизвестный генератор %q", cfg.Generator)
}

// OpenWorld собирает мир: манифест, хранилище, генератор, рендерер и движок.
// Для хранилищ на диске сид и генератор берутся из манифеста существующего мира.
func OpenWorld(ctx context.Context, cfg *config.Config) (*World, error) {
	log := logging.GetGameLogger()

	manifest := storage.Manifest{
		Seed:        cfg.World.Seed,
		Generator:   cfg.World.Generator,
		ChunkWidth:  cfg.World.ChunkWidth,
		ChunkHeight: cfg.World.ChunkHeight,
		TileSize:    cfg.World.TileSize,
		Backend:     cfg.Storage.Backend,
	}
	if cfg.Storage.Dir != "" && cfg.Storage.Backend != "memory" && cfg.Storage.Backend != "redis" {
		m, created, err := storage.LoadOrCreateManifest(filepath.Clean(cfg.Storage.Dir), manifest)
		if err != nil {
			return nil, err
		}
		if created {
			log.Info("🌍 Создан новый мир %s (seed=%d)", m.WorldID, m.Seed)
		} else {
			log.Info("🌍 Открыт мир %s (seed=%d, создан %s)", m.WorldID, m.Seed, m.CreatedAt.Format("2006-01-02"))
		}
		manifest = m
	}

	wc := cfg.World
	wc.Seed = manifest.Seed
	if manifest.Generator != "" {
		wc.Generator = manifest.Generator
	}
	gen, err := NewGenerator(wc)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	chunks := storage.NewChunkStore(storage.NewCodec(cfg.Geometry()), store)
	r := render.NewHeadless()

	engine, err := NewEngine(Options{
		Policy:            cfg.Policy(),
		Generator:         gen,
		Store:             chunks,
		Renderer:          r,
		ParkUnloadedEdits: cfg.World.ParkUnloadedEdits,
		MaxParkedPerChunk: cfg.World.MaxParkedPerChunk,
		MaxParkedTotal:    cfg.World.MaxParkedTotal,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &World{
		Engine:   engine,
		Renderer: r,
		Chunks:   chunks,
		Manifest: manifest,
		store:    store,
	}, nil
}

// Close сохраняет мир и закрывает хранилище
func (w *World) Close(ctx context.Context) error {
	return errors.Join(w.Engine.Shutdown(ctx), w.store.Close())
}
