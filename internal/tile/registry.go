package tile

import (
	"fmt"
	"sort"
	"sync"
)

// Properties описывает свойства типа тайла
type Properties struct {
	Name     string
	Walkable bool
	Layer    Layer // слой, для которого тайл предназначен
}

// Registry соответствие ID -> свойства
type Registry struct {
	mu    sync.RWMutex
	props map[ID]Properties
	names map[string]ID
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		props: make(map[ID]Properties),
		names: make(map[string]ID),
	}
}

// Register добавляет тип тайла в реестр
func (r *Registry) Register(id ID, p Properties) error {
	if !p.Layer.Valid() {
		return fmt.Errorf("тайл %q: недопустимый слой %d", p.Name, p.Layer)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.props[id]; ok {
		return fmt.Errorf("ID %d уже занят тайлом %q", id, existing.Name)
	}
	if _, ok := r.names[p.Name]; ok {
		return fmt.Errorf("имя тайла %q уже зарегистрировано", p.Name)
	}
	r.props[id] = p
	r.names[p.Name] = id
	return nil
}

// Get возвращает свойства для указанного ID
func (r *Registry) Get(id ID) (Properties, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.props[id]
	return p, ok
}

// Lookup ищет ID по имени
func (r *Registry) Lookup(name string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.names[name]
	return id, ok
}

// IsValid проверяет, является ли ID зарегистрированным тайлом
func (r *Registry) IsValid(id ID) bool {
	_, ok := r.Get(id)
	return ok
}

// IDs возвращает все зарегистрированные ID по возрастанию
func (r *Registry) IDs() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.props))
	for id := range r.props {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var defaultRegistry = mustDefaults()

// Default возвращает реестр со встроенными тайлами
func Default() *Registry {
	return defaultRegistry
}

// Name возвращает имя тайла из встроенного реестра
func (id ID) Name() string {
	if p, ok := defaultRegistry.Get(id); ok {
		return p.Name
	}
	return fmt.Sprintf("tile#%d", uint16(id))
}

func mustDefaults() *Registry {
	r := NewRegistry()
	builtin := []struct {
		id ID
		p  Properties
	}{
		{Empty, Properties{Name: "empty", Walkable: true, Layer: Ground}},
		{Grass, Properties{Name: "grass", Walkable: true, Layer: Ground}},
		{Dirt, Properties{Name: "dirt", Walkable: true, Layer: Ground}},
		{FogBlack, Properties{Name: "fog_black", Walkable: true, Layer: Overlay}},
		{ShadowLight1, Properties{Name: "shadow_light_1", Walkable: true, Layer: Overlay}},
		{ShadowLight2, Properties{Name: "shadow_light_2", Walkable: true, Layer: Overlay}},
		{ShadowMedium1, Properties{Name: "shadow_medium_1", Walkable: true, Layer: Overlay}},
		{ShadowMedium2, Properties{Name: "shadow_medium_2", Walkable: true, Layer: Overlay}},
		{ShadowDark1, Properties{Name: "shadow_dark_1", Walkable: true, Layer: Overlay}},
		{ShadowDark2, Properties{Name: "shadow_dark_2", Walkable: true, Layer: Overlay}},
		{Water, Properties{Name: "water", Walkable: false, Layer: Ground}},
		{Sand, Properties{Name: "sand", Walkable: true, Layer: Ground}},
		{Stone, Properties{Name: "stone", Walkable: false, Layer: Ground}},
		{Flower, Properties{Name: "flower", Walkable: true, Layer: Decoration}},
		{Pebbles, Properties{Name: "pebbles", Walkable: true, Layer: Decoration}},
	}
	for _, b := range builtin {
		if err := r.Register(b.id, b.p); err != nil {
			panic(err)
		}
	}
	return r
}
