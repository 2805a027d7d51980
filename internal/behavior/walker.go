package behavior

import (
	"math"

	"github.com/annel0/tileworld/internal/vec"
)

// Walker движение по фигуре Лиссажу вокруг точки. Детерминировано и
// не требует ввода, поэтому подходит для сценариев без окна.
type Walker struct {
	Origin vec.Vec2Float
	Radius float64 // амплитуда в мировых единицах
	Speed  float64 // радиан на шаг

	phase float64
}

// NewWalker создаёт бродягу
func NewWalker(origin vec.Vec2Float, radius, speed float64) *Walker {
	return &Walker{Origin: origin, Radius: radius, Speed: speed}
}

// Next сдвигает фазу и возвращает новую позицию
func (w *Walker) Next() vec.Vec2Float {
	w.phase += w.Speed
	return w.Position()
}

// Position текущая позиция
func (w *Walker) Position() vec.Vec2Float {
	return vec.Vec2Float{
		X: w.Origin.X + w.Radius*math.Sin(w.phase),
		Y: w.Origin.Y + w.Radius*math.Sin(2*w.phase)/2,
	}
}
