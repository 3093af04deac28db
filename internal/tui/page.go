package tui

import (
	"math"
	"strings"

	"github.com/npratt/nova/internal/geometry"
)

// orbRune marks the orb on the page canvas.
const orbRune = '◉'

type boxRunes struct {
	h, v, tl, tr, bl, br rune
}

var (
	plainBox     = boxRunes{'─', '│', '┌', '┐', '└', '┘'}
	highlightBox = boxRunes{'═', '║', '╔', '╗', '╚', '╝'}
)

// canvas is a fixed-size rune grid.
type canvas struct {
	cols, rows int
	cells      [][]rune
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: max(0, cols), rows: max(0, rows)}
	c.cells = make([][]rune, c.rows)
	for y := range c.cells {
		c.cells[y] = []rune(strings.Repeat(" ", c.cols))
	}
	return c
}

func (c *canvas) set(x, y int, r rune) {
	if x < 0 || y < 0 || x >= c.cols || y >= c.rows {
		return
	}
	c.cells[y][x] = r
}

func (c *canvas) text(x, y int, s string) {
	for i, r := range []rune(s) {
		c.set(x+i, y, r)
	}
}

func (c *canvas) box(x0, y0, x1, y1 int, b boxRunes) {
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, b.h)
		c.set(x, y1, b.h)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, b.v)
		c.set(x1, y, b.v)
	}
	c.set(x0, y0, b.tl)
	c.set(x1, y0, b.tr)
	c.set(x0, y1, b.bl)
	c.set(x1, y1, b.br)
}

func (c *canvas) lines() []string {
	out := make([]string, c.rows)
	for y, row := range c.cells {
		out[y] = string(row)
	}
	return out
}

// pageScene is what the page pane draws.
type pageScene struct {
	Sections  []geometry.Section
	Viewport  geometry.Viewport
	Highlight string
	Orb       *geometry.Point
	OrbSize   float64
}

// renderPage draws the visible part of the page into a cols x rows grid.
// The viewport is scaled to fill the grid; sections scrolled out of view
// are clipped. The highlighted section gets a double border and the orb
// is drawn at its center.
func renderPage(scene pageScene, cols, rows int) []string {
	c := newCanvas(cols, rows)
	vp := scene.Viewport
	if cols <= 0 || rows <= 0 || vp.Width <= 0 || vp.Height <= 0 {
		return c.lines()
	}

	sx := vp.Width / float64(cols)
	sy := vp.Height / float64(rows)
	toCol := func(x float64) int { return int(math.Floor((x - vp.ScrollX) / sx)) }
	toRow := func(y float64) int { return int(math.Floor((y - vp.ScrollY) / sy)) }

	// Highlight is drawn last so it wins where borders touch.
	var highlighted *geometry.Section
	for i := range scene.Sections {
		s := scene.Sections[i]
		if s.ID == scene.Highlight {
			highlighted = &scene.Sections[i]
			continue
		}
		drawSection(c, s, toCol, toRow, plainBox)
	}
	if highlighted != nil {
		drawSection(c, *highlighted, toCol, toRow, highlightBox)
	}

	if scene.Orb != nil {
		half := scene.OrbSize / 2
		c.set(toCol(scene.Orb.X+half), toRow(scene.Orb.Y+half), orbRune)
	}

	return c.lines()
}

func drawSection(c *canvas, s geometry.Section, toCol, toRow func(float64) int, b boxRunes) {
	x0, y0 := toCol(s.Left), toRow(s.Top)
	x1, y1 := toCol(s.Left+s.Width)-1, toRow(s.Top+s.Height)-1
	if x1 <= x0 || y1 <= y0 || y1 < 0 || y0 >= c.rows {
		return
	}
	c.box(x0, y0, x1, y1, b)
	if label := " " + s.ID + " "; x1-x0 > len(label)+2 {
		c.text(x0+2, y0, label)
	}
}
