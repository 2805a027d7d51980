package vec

import "math"

// Vec2Float мировые координаты в пикселях
type Vec2Float struct {
	X, Y float64
}

// Floor округляет обе координаты вниз. Для отрицательных значений
// это не то же самое, что int(x): Floor(-0.5) == -1.
func (v Vec2Float) Floor() Vec2 {
	return Vec2{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}

// FromVec2 создает Vec2Float из Vec2
func FromVec2(v Vec2) Vec2Float {
	return Vec2Float{X: float64(v.X), Y: float64(v.Y)}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Lerp линейная интерполяция к other, t в [0, 1]
func (v Vec2Float) Lerp(other Vec2Float, t float64) Vec2Float {
	return Vec2Float{X: v.X + (other.X-v.X)*t, Y: v.Y + (other.Y-v.Y)*t}
}
