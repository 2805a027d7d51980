package game

import "github.com/annel0/tileworld/internal/vec"

// Пределы масштаба камеры
const (
	MinZoom  = 0.5
	MaxZoom  = 3.0
	ZoomStep = 0.1
)

// Camera позиция и масштаб проекции. Zoom > 1 показывает больше мира.
type Camera struct {
	Position vec.Vec2Float `json:"position"`
	Zoom     float64       `json:"zoom"`
}

// NewCamera камера в точке с масштабом 1
func NewCamera(pos vec.Vec2Float) Camera {
	return Camera{Position: pos, Zoom: 1}
}

// ClampZoom ограничивает масштаб диапазоном [MinZoom, MaxZoom]
func ClampZoom(z float64) float64 {
	switch {
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}

// ZoomBy меняет масштаб на steps шагов колеса мыши
func (c Camera) ZoomBy(steps int) Camera {
	c.Zoom = ClampZoom(c.Zoom + float64(steps)*ZoomStep)
	return c
}

// Move сдвигает камеру
func (c Camera) Move(d vec.Vec2Float) Camera {
	c.Position = c.Position.Add(d)
	return c
}
