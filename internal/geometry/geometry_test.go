package geometry

import (
	"testing"
)

func TestOrbPosition(t *testing.T) {
	l := DefaultLayout()
	vp := Viewport{Width: 1280, Height: 800}
	r := Rect{Left: 400, Top: 200, Width: 300, Height: 100}

	tests := []struct {
		side Side
		want Point
	}{
		{SideLeft, Point{X: 400 - 64 - 20, Y: 200 + 50 - 32}},
		{SideRight, Point{X: 700 + 20, Y: 200 + 50 - 32}},
		{SideTop, Point{X: 400 + 150 - 32, Y: 200 - 64 - 20}},
		{SideBottom, Point{X: 400 + 150 - 32, Y: 300 + 20}},
	}

	for _, tt := range tests {
		t.Run(string(tt.side), func(t *testing.T) {
			got := l.OrbPosition(r, tt.side, vp)
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}

	t.Run("unknown side docks right", func(t *testing.T) {
		got := l.OrbPosition(r, Side("diagonal"), vp)
		want := l.OrbPosition(r, SideRight, vp)
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("includes scroll offset", func(t *testing.T) {
		scrolled := Viewport{Width: 1280, Height: 800, ScrollY: 1000}
		got := l.OrbPosition(r, SideRight, scrolled)
		if got.Y != 1000+200+50-32 {
			t.Errorf("expected y=%v, got %v", 1000+200+50-32, got.Y)
		}
	})

	t.Run("clamps left overflow to margin", func(t *testing.T) {
		got := l.OrbPosition(Rect{Left: 5, Top: 300, Width: 100, Height: 40}, SideLeft, vp)
		if got.X != 10 {
			t.Errorf("expected x=10, got %v", got.X)
		}
	})

	t.Run("clamps right overflow to viewport", func(t *testing.T) {
		got := l.OrbPosition(Rect{Left: 1200, Top: 300, Width: 70, Height: 40}, SideRight, vp)
		if got.X != 1280-64-10 {
			t.Errorf("expected x=%v, got %v", 1280-64-10, got.X)
		}
	})

	t.Run("clamps target above viewport", func(t *testing.T) {
		scrolled := Viewport{Width: 1280, Height: 800, ScrollY: 500}
		got := l.OrbPosition(Rect{Left: 100, Top: -400, Width: 100, Height: 40}, SideTop, scrolled)
		if got.Y != 510 {
			t.Errorf("expected y=510, got %v", got.Y)
		}
	})
}

func TestOrbPositionStaysInViewport(t *testing.T) {
	l := DefaultLayout()
	sides := []Side{SideLeft, SideRight, SideTop, SideBottom}
	viewports := []Viewport{
		{Width: 1280, Height: 800},
		{Width: 375, Height: 667, ScrollY: 1200},
		{Width: 1920, Height: 1080, ScrollY: 40},
	}

	for _, vp := range viewports {
		for _, side := range sides {
			for left := -500.0; left <= 2500; left += 137 {
				for top := -900.0; top <= 2000; top += 211 {
					for _, size := range []float64{0, 20, 300, 1400} {
						r := Rect{Left: left, Top: top, Width: size, Height: size / 2}
						p := l.OrbPosition(r, side, vp)

						if p.X < 10 || p.X > vp.Width-74 {
							t.Fatalf("x=%v outside [10, %v] for rect %+v side %s vp %+v", p.X, vp.Width-74, r, side, vp)
						}
						if p.Y < 10+vp.ScrollY || p.Y > vp.ScrollY+vp.Height-74 {
							t.Fatalf("y=%v outside [%v, %v] for rect %+v side %s vp %+v",
								p.Y, 10+vp.ScrollY, vp.ScrollY+vp.Height-74, r, side, vp)
						}
					}
				}
			}
		}
	}
}

func TestScrollTarget(t *testing.T) {
	t.Run("centers element", func(t *testing.T) {
		vp := Viewport{Width: 1280, Height: 800, ScrollY: 100}
		r := Rect{Top: 900, Height: 200}
		// element top in document = 1000; 1000 - 400 + 100 = 700
		if got := ScrollTarget(r, vp); got != 700 {
			t.Errorf("expected 700, got %v", got)
		}
	})

	t.Run("never scrolls above top", func(t *testing.T) {
		vp := Viewport{Width: 1280, Height: 800}
		r := Rect{Top: 50, Height: 100}
		if got := ScrollTarget(r, vp); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})
}

func TestParseSide(t *testing.T) {
	for _, s := range []string{"left", "right", "top", "bottom"} {
		if _, err := ParseSide(s); err != nil {
			t.Errorf("ParseSide(%q) returned error: %v", s, err)
		}
	}
	if _, err := ParseSide("middle"); err == nil {
		t.Error("expected error for invalid side")
	}
}
