package world

import (
	"fmt"
	"time"

	"github.com/annel0/tileworld/internal/tile"
)

// LoadedChunk загруженный чанк: данные плюс по одному визуальному слою на каждый слой тайлов
type LoadedChunk struct {
	Coord    ChunkCoord
	Data     *ChunkData
	Handles  [tile.MaxLayers]Handle
	LoadedAt time.Time
}

// TileModification запрос на изменение одного тайла в мировых координатах
type TileModification struct {
	WorldX, WorldY float64
	Tile           tile.ID
	Layer          tile.Layer
}

// Counters накопительные счётчики жизненного цикла мира
type Counters struct {
	Generated       uint64 `json:"generated"`
	LoadedFromStore uint64 `json:"loaded_from_store"`
	Upgraded        uint64 `json:"upgraded"`
	Corrupt         uint64 `json:"corrupt"`
	LoadErrors      uint64 `json:"load_errors"`
	Saved           uint64 `json:"saved"`
	SaveFailures    uint64 `json:"save_failures"`
	Unloaded        uint64 `json:"unloaded"`
	Applied         uint64 `json:"applied"`
	Dropped         uint64 `json:"dropped"`
	Parked          uint64 `json:"parked"`
	Replayed        uint64 `json:"replayed"`
}

// Stats снимок состояния мира
type Stats struct {
	Loaded    int        `json:"loaded"`
	Dirty     int        `json:"dirty"`
	Pending   int        `json:"pending"`
	ParkedNow int        `json:"parked_now"`
	Camera    ChunkCoord `json:"camera"`
	HasCamera bool       `json:"has_camera"`
	Counters
}

// String краткая строка для логов
func (s Stats) String() string {
	cam := "none"
	if s.HasCamera {
		cam = s.Camera.String()
	}
	return fmt.Sprintf("loaded=%d dirty=%d pending=%d parked=%d camera=%s generated=%d stored=%d saved=%d dropped=%d",
		s.Loaded, s.Dirty, s.Pending, s.ParkedNow, cam, s.Generated, s.LoadedFromStore, s.Saved, s.Dropped)
}

const (
	// DefaultMaxParkedPerChunk лимит отложенных правок на один чанк
	DefaultMaxParkedPerChunk = 256
	// DefaultMaxParkedTotal лимит отложенных правок на весь мир
	DefaultMaxParkedTotal = 16 * DefaultMaxParkedPerChunk
)

// Manager хранит загруженные чанки, очередь изменений и камеру.
// Сам не сохраняет и не рисует; этим занимаются Loader и Pipeline.
// Не потокобезопасен: доступ должен идти из одного шага мира.
type Manager struct {
	loaded    map[ChunkCoord]*LoadedChunk
	queue     []TileModification
	parked    map[ChunkCoord][]TileModification
	maxParked int

	// parkOrder чанки в порядке появления первой отложенной правки
	parkOrder   []ChunkCoord
	parkedTotal int
	maxTotal    int

	camera    ChunkCoord
	hasCamera bool

	counters Counters
	now      func() time.Time
}

// NewManager создаёт пустой мир
func NewManager() *Manager {
	return &Manager{
		loaded:    make(map[ChunkCoord]*LoadedChunk),
		parked:    make(map[ChunkCoord][]TileModification),
		maxParked: DefaultMaxParkedPerChunk,
		maxTotal:  DefaultMaxParkedTotal,
		now:       time.Now,
	}
}

// SetMaxParkedPerChunk меняет лимит отложенных правок, n <= 0 возвращает значение по умолчанию
func (m *Manager) SetMaxParkedPerChunk(n int) {
	if n <= 0 {
		n = DefaultMaxParkedPerChunk
	}
	m.maxParked = n
	if m.maxTotal < n {
		m.maxTotal = n
	}
}

// SetMaxParkedTotal меняет общий лимит отложенных правок. Лимит не может
// быть меньше лимита на чанк, n <= 0 возвращает значение по умолчанию.
func (m *Manager) SetMaxParkedTotal(n int) {
	if n <= 0 {
		n = DefaultMaxParkedTotal
	}
	if n < m.maxParked {
		n = m.maxParked
	}
	m.maxTotal = n
}

// IsLoaded загружен ли чанк
func (m *Manager) IsLoaded(c ChunkCoord) bool {
	_, ok := m.loaded[c]
	return ok
}

// Get возвращает загруженный чанк
func (m *Manager) Get(c ChunkCoord) (*LoadedChunk, bool) {
	lc, ok := m.loaded[c]
	return lc, ok
}

// Coords загруженные координаты, отсортированные
func (m *Manager) Coords() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(m.loaded))
	for c := range m.loaded {
		out = append(out, c)
	}
	SortCoords(out)
	return out
}

// Load регистрирует чанк. Повторная загрузка того же чанка - ошибка вызывающего.
func (m *Manager) Load(c ChunkCoord, data *ChunkData, handles [tile.MaxLayers]Handle) error {
	if _, ok := m.loaded[c]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, c)
	}
	if data == nil {
		return fmt.Errorf("чанк %s: нет данных", c)
	}
	m.loaded[c] = &LoadedChunk{
		Coord:    c,
		Data:     data,
		Handles:  handles,
		LoadedAt: m.now(),
	}
	return nil
}

// Unload снимает чанк с регистрации и отдаёт данные и визуальные слои
func (m *Manager) Unload(c ChunkCoord) (*ChunkData, [tile.MaxLayers]Handle, error) {
	lc, ok := m.loaded[c]
	if !ok {
		return nil, [tile.MaxLayers]Handle{}, fmt.Errorf("%w: %s", ErrNotLoaded, c)
	}
	delete(m.loaded, c)
	return lc.Data, lc.Handles, nil
}

// QueueTileModification ставит изменение в конец очереди
func (m *Manager) QueueTileModification(worldX, worldY float64, id tile.ID, layer tile.Layer) {
	m.queue = append(m.queue, TileModification{WorldX: worldX, WorldY: worldY, Tile: id, Layer: layer})
}

// TakeTileModifications забирает всю очередь в порядке поступления
func (m *Manager) TakeTileModifications() []TileModification {
	q := m.queue
	m.queue = nil
	return q
}

// PendingModifications длина очереди
func (m *Manager) PendingModifications() int {
	return len(m.queue)
}

// Park откладывает правку незагруженного чанка и возвращает число
// вытесненных правок. Сверх лимита на чанк вытесняются его самые старые
// правки. Сверх общего лимита целиком вытесняются чанки, отложенные раньше
// всех, кроме c.
func (m *Manager) Park(c ChunkCoord, mod TileModification) int {
	list, ok := m.parked[c]
	if !ok {
		m.parkOrder = append(m.parkOrder, c)
	}
	list = append(list, mod)
	m.parkedTotal++

	evicted := 0
	if over := len(list) - m.maxParked; over > 0 {
		// Новый срез, чтобы вытесненные правки не держались в старом массиве
		kept := make([]TileModification, m.maxParked)
		copy(kept, list[over:])
		list = kept
		m.parkedTotal -= over
		evicted += over
	}
	m.parked[c] = list

	for i := 0; m.parkedTotal > m.maxTotal && i < len(m.parkOrder); {
		oldest := m.parkOrder[i]
		if oldest == c {
			i++
			continue
		}
		evicted += len(m.TakeParked(oldest))
	}
	return evicted
}

// TakeParked забирает отложенные правки чанка
func (m *Manager) TakeParked(c ChunkCoord) []TileModification {
	list, ok := m.parked[c]
	if !ok {
		return nil
	}
	delete(m.parked, c)
	m.parkedTotal -= len(list)
	for i, pc := range m.parkOrder {
		if pc == c {
			m.parkOrder = append(m.parkOrder[:i], m.parkOrder[i+1:]...)
			break
		}
	}
	return list
}

// ParkedCoords чанки с отложенными правками, отсортированные
func (m *Manager) ParkedCoords() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(m.parked))
	for c := range m.parked {
		out = append(out, c)
	}
	SortCoords(out)
	return out
}

// SetCameraChunk запоминает чанк камеры, true если он сменился
func (m *Manager) SetCameraChunk(c ChunkCoord) bool {
	changed := !m.hasCamera || m.camera != c
	m.camera = c
	m.hasCamera = true
	return changed
}

// CameraChunk последний известный чанк камеры
func (m *Manager) CameraChunk() (ChunkCoord, bool) {
	return m.camera, m.hasCamera
}

// DirtyCoords загруженные чанки с несохранёнными изменениями
func (m *Manager) DirtyCoords() []ChunkCoord {
	var out []ChunkCoord
	for c, lc := range m.loaded {
		if lc.Data.IsDirty() {
			out = append(out, c)
		}
	}
	SortCoords(out)
	return out
}

// Stats снимок состояния
func (m *Manager) Stats() Stats {
	s := Stats{
		Loaded:    len(m.loaded),
		Pending:   len(m.queue),
		Camera:    m.camera,
		HasCamera: m.hasCamera,
		Counters:  m.counters,
	}
	for _, lc := range m.loaded {
		if lc.Data.IsDirty() {
			s.Dirty++
		}
	}
	s.ParkedNow = m.parkedTotal
	return s
}
