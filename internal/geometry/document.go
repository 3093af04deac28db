package geometry

import (
	"math"
	"sync"
)

// Section is one block of a laid-out document, in document coordinates.
type Section struct {
	ID     string  `json:"id"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is an in-memory page: a set of sections plus a scrollable
// viewport. It backs the terminal renderer and the headless runner, and is
// safe for concurrent use.
type Document struct {
	mu       sync.RWMutex
	sections map[string]Section
	order    []string
	height   float64
	vp       Viewport
}

// NewDocument creates a document from sections laid out in document space.
func NewDocument(vp Viewport, sections ...Section) *Document {
	d := &Document{sections: make(map[string]Section), vp: vp}
	d.SetSections(sections)
	return d
}

// SetSections replaces the page layout, keeping the current scroll offset
// within the new document bounds.
func (d *Document) SetSections(sections []Section) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sections = make(map[string]Section, len(sections))
	d.order = d.order[:0]
	d.height = 0
	for _, s := range sections {
		d.sections[s.ID] = s
		d.order = append(d.order, s.ID)
		d.height = math.Max(d.height, s.Top+s.Height)
	}
	d.vp.ScrollY = d.clampScroll(d.vp.ScrollY)
}

// Sections returns the sections in layout order.
func (d *Document) Sections() []Section {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Section, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.sections[id])
	}
	return out
}

// Locate implements Locator.
func (d *Document) Locate(id string) (Rect, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sections[id]
	if !ok {
		return Rect{}, false
	}
	return Rect{
		Left:   s.Left - d.vp.ScrollX,
		Top:    s.Top - d.vp.ScrollY,
		Width:  s.Width,
		Height: s.Height,
	}, true
}

// Viewport implements Locator.
func (d *Document) Viewport() Viewport {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.vp
}

// ScrollTo implements Scroller. The offset is clamped to the scrollable range.
func (d *Document) ScrollTo(y float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vp.ScrollY = d.clampScroll(y)
}

// Resize changes the viewport dimensions.
func (d *Document) Resize(width, height float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vp.Width = width
	d.vp.Height = height
	d.vp.ScrollY = d.clampScroll(d.vp.ScrollY)
}

// Height returns the total document height.
func (d *Document) Height() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.height
}

func (d *Document) clampScroll(y float64) float64 {
	maxScroll := math.Max(0, d.height-d.vp.Height)
	return math.Max(0, math.Min(y, maxScroll))
}

// StackSections lays ids out top to bottom as full-width blocks of the
// given height, separated by gap. It gives a script a page to walk when
// no real layout is available.
func StackSections(width, height, gap float64, ids ...string) []Section {
	const inset = 40

	out := make([]Section, 0, len(ids))
	top := gap
	for _, id := range ids {
		out = append(out, Section{
			ID:     id,
			Left:   inset,
			Top:    top,
			Width:  math.Max(0, width-2*inset),
			Height: height,
		})
		top += height + gap
	}
	return out
}
