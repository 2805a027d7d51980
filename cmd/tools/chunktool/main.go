package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"sort"

	"github.com/annel0/tileworld/internal/config"
	"github.com/annel0/tileworld/internal/game"
	"github.com/annel0/tileworld/internal/storage"
	"github.com/annel0/tileworld/internal/tile"
	"github.com/annel0/tileworld/internal/world"
)

func main() {
	var (
		dir      = flag.String("dir", "saves/world", "каталог мира")
		backend  = flag.String("backend", "file", "хранилище: file, badger")
		compress = flag.Bool("compress", false, "записи сжаты zstd")
		command  = flag.String("cmd", "info", "команда: info, dump, upgrade, verify")
		x        = flag.Int("x", 0, "X чанка для dump")
		y        = flag.Int("y", 0, "Y чанка для dump")
		layer    = flag.String("layer", "ground", "слой для dump")
	)
	flag.Parse()

	ctx := context.Background()

	geom := world.DefaultGeometry()
	manifest, err := storage.ReadManifest(*dir)
	switch {
	case err == nil:
		geom = manifest.Geometry()
	case errors.Is(err, fs.ErrNotExist):
		fmt.Printf("⚠️ %s не найден, размер чанка по умолчанию %dx%d\n", storage.ManifestFile, geom.ChunkWidth, geom.ChunkHeight)
	default:
		log.Fatalf("❌ %v", err)
	}

	store, err := game.OpenStore(ctx, config.StorageConfig{Backend: *backend, Dir: *dir, Compress: *compress})
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer store.Close()

	chunks := storage.NewChunkStore(storage.NewCodec(geom), store)

	switch *command {
	case "info":
		err = info(ctx, manifest, chunks)
	case "dump":
		err = dump(ctx, chunks, world.ChunkCoord{X: int32(*x), Y: int32(*y)}, *layer)
	case "upgrade":
		err = upgrade(ctx, chunks)
	case "verify":
		err = verify(ctx, chunks)
	default:
		err = fmt.Errorf("неизвестная команда %q", *command)
	}
	if err != nil {
		store.Close()
		log.Fatalf("❌ %v", err)
	}
}

func info(ctx context.Context, m storage.Manifest, chunks *storage.ChunkStore) error {
	if m.WorldID != "" {
		fmt.Printf("Мир:        %s\n", m.WorldID)
		fmt.Printf("Создан:     %s\n", m.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Сид:        %d (%s)\n", m.Seed, m.Generator)
		fmt.Printf("Чанк:       %dx%d, тайл %.0f\n", m.ChunkWidth, m.ChunkHeight, m.TileSize)
	}

	coords, err := chunks.Coords(ctx)
	if err != nil {
		return err
	}
	versions := make(map[uint16]int)
	corrupt := 0
	for _, c := range coords {
		b, err := chunks.Backend().Get(ctx, c)
		if err != nil {
			return err
		}
		h, err := storage.ReadHeader(b)
		if err != nil {
			corrupt++
			continue
		}
		versions[h.Version]++
	}

	fmt.Printf("Чанков:     %d\n", len(coords))
	keys := make([]int, 0, len(versions))
	for v := range versions {
		keys = append(keys, int(v))
	}
	sort.Ints(keys)
	for _, v := range keys {
		fmt.Printf("  формат v%d: %d\n", v, versions[uint16(v)])
	}
	if corrupt > 0 {
		fmt.Printf("  повреждено: %d\n", corrupt)
	}
	return nil
}

func dump(ctx context.Context, chunks *storage.ChunkStore, c world.ChunkCoord, layerName string) error {
	l, err := tile.ParseLayer(layerName)
	if err != nil {
		return err
	}
	data, err := chunks.Load(ctx, c)
	if err != nil {
		return err
	}
	fmt.Printf("Чанк %s, %s, слой %s\n", c, data.Origin, l)
	tiles := data.Layer(l)
	for y := data.Height - 1; y >= 0; y-- {
		row := make([]rune, data.Width)
		for x := 0; x < data.Width; x++ {
			row[x] = tiles[y*data.Width+x].Glyph()
		}
		fmt.Println(string(row))
	}
	return nil
}

func upgrade(ctx context.Context, chunks *storage.ChunkStore) error {
	coords, err := chunks.Coords(ctx)
	if err != nil {
		return err
	}
	upgraded := 0
	for _, c := range coords {
		ok, err := chunks.Upgrade(ctx, c)
		if err != nil {
			fmt.Printf("⚠️ %s: %v\n", c, err)
			continue
		}
		if ok {
			upgraded++
		}
	}
	fmt.Printf("✅ Переписано %d из %d чанков\n", upgraded, len(coords))
	return nil
}

func verify(ctx context.Context, chunks *storage.ChunkStore) error {
	coords, err := chunks.Coords(ctx)
	if err != nil {
		return err
	}
	bad := 0
	for _, c := range coords {
		if _, err := chunks.Load(ctx, c); err != nil {
			fmt.Printf("❌ %s: %v\n", c, err)
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("повреждено %d из %d чанков", bad, len(coords))
	}
	fmt.Printf("✅ Все %d чанков читаются\n", len(coords))
	return nil
}
