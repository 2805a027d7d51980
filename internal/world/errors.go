package world

import "errors"

var (
	// ErrOutOfBounds локальные координаты вне чанка
	ErrOutOfBounds = errors.New("tile coordinates out of chunk bounds")
	// ErrInvalidLayer слой >= tile.MaxLayers
	ErrInvalidLayer = errors.New("invalid tile layer")
	// ErrChunkNotFound в хранилище нет записи для чанка
	ErrChunkNotFound = errors.New("chunk not found in storage")
	// ErrCorruptChunk запись чанка повреждена или не читается
	ErrCorruptChunk = errors.New("corrupt chunk record")
	// ErrAlreadyLoaded чанк уже загружен
	ErrAlreadyLoaded = errors.New("chunk already loaded")
	// ErrNotLoaded чанк не загружен
	ErrNotLoaded = errors.New("chunk not loaded")
)
