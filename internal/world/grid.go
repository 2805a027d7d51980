package world

import (
	"fmt"
	"strings"
)

// Символы отладочной сетки чанков
const (
	GlyphCamera         = '@'
	GlyphVisibleLoaded  = '■'
	GlyphVisibleMissing = '□'
	GlyphLoaded         = '█'
	GlyphLeaving        = '▓' // загружен, но вне радиуса загрузки
	GlyphPending        = '░' // должен быть загружен, но ещё нет
	GlyphEmpty          = '·'
)

// RenderGrid рисует сетку чанков вокруг камеры для отладки. Y растёт вверх.
func RenderGrid(m *Manager, radii Radii, visible map[ChunkCoord]struct{}) string {
	center, ok := m.CameraChunk()
	if !ok {
		return "камера не задана\n"
	}
	view := max(radii.Load+1, 6)

	var b strings.Builder
	b.WriteString("╔═══════════════ Chunk Grid ═══════════════╗\n")
	b.WriteString("    ")
	for x := int(center.X) - view; x <= int(center.X)+view; x++ {
		fmt.Fprintf(&b, "%4d", x)
	}
	b.WriteByte('\n')

	for y := int(center.Y) + view; y >= int(center.Y)-view; y-- {
		fmt.Fprintf(&b, "%4d", y)
		for x := int(center.X) - view; x <= int(center.X)+view; x++ {
			c := ChunkCoord{X: int32(x), Y: int32(y)}
			fmt.Fprintf(&b, "   %c", gridGlyph(m, center, c, radii, visible))
		}
		b.WriteByte('\n')
	}
	s := m.Stats()
	fmt.Fprintf(&b, "@ камера  ■ видим  □ видим, не загружен  █ загружен  ▓ к выгрузке  ░ ожидает  · пусто\n")
	fmt.Fprintf(&b, "загружено %d, грязных %d, радиусы %d/%d/%d\n", s.Loaded, s.Dirty, radii.Visible, radii.Load, radii.Unload)
	return b.String()
}

func gridGlyph(m *Manager, center, c ChunkCoord, radii Radii, visible map[ChunkCoord]struct{}) rune {
	loaded := m.IsLoaded(c)
	_, isVisible := visible[c]
	inLoad := center.Chebyshev(c) <= radii.Load
	switch {
	case c == center:
		return GlyphCamera
	case isVisible && loaded:
		return GlyphVisibleLoaded
	case isVisible:
		return GlyphVisibleMissing
	case loaded && inLoad:
		return GlyphLoaded
	case loaded:
		return GlyphLeaving
	case inLoad:
		return GlyphPending
	default:
		return GlyphEmpty
	}
}
