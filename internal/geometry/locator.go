package geometry

// Locator resolves element ids on the rendered page.
type Locator interface {
	// Locate returns the element's viewport-relative rectangle, or false
	// if the element is not on the page.
	Locate(id string) (Rect, bool)
	// Viewport returns the current viewport size and scroll offsets.
	Viewport() Viewport
}

// Scroller moves the viewport.
type Scroller interface {
	ScrollTo(y float64)
}

// Surface is a page that can be both queried and scrolled.
type Surface interface {
	Locator
	Scroller
}
