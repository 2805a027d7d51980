package tile

import "fmt"

// Layer логический слой чанка. Порядок слоёв задаёт порядок отрисовки.
//
// 0 – Ground: земля, вода, песок;
// 1 – Decoration: трава, камни, цветы;
// 2 – Overlay: туман и тени.
type Layer uint8

const (
	Ground Layer = iota
	Decoration
	Overlay

	MaxLayers // всегда последний: количество слоев
)

// Layers все слои по порядку
var Layers = [MaxLayers]Layer{Ground, Decoration, Overlay}

// Valid проверяет, что слой существует
func (l Layer) Valid() bool {
	return l < MaxLayers
}

// RenderDepth глубина отрисовки слоя. Сохраняет порядок Ground < Decoration < Overlay.
func (l Layer) RenderDepth() float64 {
	return float64(l) * 0.1
}

// String возвращает имя слоя
func (l Layer) String() string {
	switch l {
	case Ground:
		return "ground"
	case Decoration:
		return "decoration"
	case Overlay:
		return "overlay"
	default:
		return fmt.Sprintf("layer(%d)", uint8(l))
	}
}

// ParseLayer разбирает имя слоя из конфигов и CLI
func ParseLayer(s string) (Layer, error) {
	for _, l := range Layers {
		if l.String() == s {
			return l, nil
		}
	}
	return MaxLayers, fmt.Errorf("неизвестный слой %q", s)
}
