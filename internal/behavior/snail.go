package behavior

import (
	"github.com/annel0/tileworld/internal/vec"
	"github.com/annel0/tileworld/internal/world"
)

// Snail бродит вокруг точки и оставляет след
type Snail struct {
	walker *Walker
	trail  *Trail
}

// NewSnail улитка со следом из земли
func NewSnail(editor world.TileEditor, origin vec.Vec2Float, radius, speed float64, seed int64) *Snail {
	return &Snail{
		walker: NewWalker(origin, radius, speed),
		trail:  NewTrail(editor, seed),
	}
}

// Tick шаг улитки
func (s *Snail) Tick() {
	s.trail.Update(s.walker.Next())
}

// Position текущая позиция улитки
func (s *Snail) Position() vec.Vec2Float {
	return s.walker.Position()
}

// Trail след улитки, через него можно сменить тайл или вероятность
func (s *Snail) Trail() *Trail {
	return s.trail
}
