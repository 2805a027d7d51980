package tile

// ID идентификатор типа тайла. 0 всегда означает пустую клетку.
type ID uint16

// Константы ID тайлов. Значения фиксированы: они попадают в файлы чанков.
const (
	Empty ID = iota // 0
	Grass           // 1
	Dirt            // 2

	// Туман войны и тени
	FogBlack     // 3
	ShadowLight1 // 4
	ShadowLight2 // 5
	ShadowMedium1
	ShadowMedium2
	ShadowDark1
	ShadowDark2 // 9

	// Рельеф генератора
	Water  // 10
	Sand   // 11
	Stone  // 12
	Flower // 13 - декорация
	Pebbles
)

// Glyph возвращает символ для ASCII-отладки
func (id ID) Glyph() rune {
	switch id {
	case Empty:
		return '·'
	case Grass:
		return '"'
	case Dirt:
		return ':'
	case Water:
		return '~'
	case Sand:
		return '.'
	case Stone:
		return '#'
	case Flower:
		return '*'
	case Pebbles:
		return 'o'
	case FogBlack:
		return '█'
	}
	if id >= ShadowLight1 && id <= ShadowDark2 {
		return '░'
	}
	return '?'
}
