// Package geometry computes where the NOVA orb docks next to a tour target
// and where the page must scroll to bring that target into view.
//
// Rectangles are viewport-relative (the equivalent of a bounding client
// rect). Orb positions are document-absolute, so they include the scroll
// offsets of the viewport they were computed against.
package geometry

import (
	"fmt"
	"math"
)

// Side is where the orb docks relative to its target.
type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// ParseSide validates a side name.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideLeft, SideRight, SideTop, SideBottom:
		return Side(s), nil
	default:
		return "", fmt.Errorf("invalid position %q: must be left, right, top or bottom", s)
	}
}

// Rect is an element's bounding box relative to the viewport origin.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Viewport is the visible window onto the document.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scroll_x"`
	ScrollY float64 `json:"scroll_y"`
}

// Point is a document-absolute coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout holds the orb dimensions used for positioning. The same OrbSize
// must be used when rendering the orb.
type Layout struct {
	OrbSize float64 `yaml:"orb_size" mapstructure:"orb_size"`
	Gap     float64 `yaml:"gap" mapstructure:"gap"`
	Margin  float64 `yaml:"margin" mapstructure:"margin"`
}

// DefaultLayout returns the stock 64px orb with a 20px gap and 10px margin.
func DefaultLayout() Layout {
	return Layout{OrbSize: 64, Gap: 20, Margin: 10}
}

// OrbPosition returns the top-left corner of the orb docked on the given
// side of r, clamped so the orb stays inside the viewport with Margin to
// spare on every edge. Unknown sides dock on the right.
func (l Layout) OrbPosition(r Rect, side Side, vp Viewport) Point {
	half := l.OrbSize / 2

	var x, y float64
	switch side {
	case SideLeft:
		x = r.Left + vp.ScrollX - l.OrbSize - l.Gap
		y = r.Top + vp.ScrollY + r.Height/2 - half
	case SideTop:
		x = r.Left + vp.ScrollX + r.Width/2 - half
		y = r.Top + vp.ScrollY - l.OrbSize - l.Gap
	case SideBottom:
		x = r.Left + vp.ScrollX + r.Width/2 - half
		y = r.Bottom() + vp.ScrollY + l.Gap
	default:
		x = r.Right() + vp.ScrollX + l.Gap
		y = r.Top + vp.ScrollY + r.Height/2 - half
	}

	x = math.Max(l.Margin, math.Min(x, vp.Width-l.OrbSize-l.Margin+vp.ScrollX))
	y = math.Max(l.Margin+vp.ScrollY, math.Min(y, vp.ScrollY+vp.Height-l.OrbSize-l.Margin))

	return Point{X: x, Y: y}
}

// ScrollTarget returns the vertical scroll offset that centers r in the
// viewport, never scrolling above the top of the document.
func ScrollTarget(r Rect, vp Viewport) float64 {
	elementTop := r.Top + vp.ScrollY
	return math.Max(0, elementTop-vp.Height/2+r.Height/2)
}
