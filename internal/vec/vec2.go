package vec

import "math"

// Vec2 целочисленные 2D координаты (тайлы, чанки)
type Vec2 struct {
	X, Y int
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Chebyshev расстояние max(|dx|, |dy|)
func (v Vec2) Chebyshev(other Vec2) int {
	return max(Abs(v.X-other.X), Abs(v.Y-other.Y))
}

// Manhattan расстояние |dx| + |dy|
func (v Vec2) Manhattan(other Vec2) int {
	return Abs(v.X-other.X) + Abs(v.Y-other.Y)
}

// DistanceTo вычисляет евклидово расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// FloorDiv деление с округлением к минус бесконечности: FloorDiv(-1, 32) == -1
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod остаток, всегда неотрицательный для b > 0: Mod(-1, 32) == 31
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// Abs модуль целого
func Abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
