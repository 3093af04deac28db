package geometry

import "testing"

func testDocument() *Document {
	return NewDocument(Viewport{Width: 1000, Height: 600},
		Section{ID: "hero", Left: 0, Top: 0, Width: 1000, Height: 500},
		Section{ID: "features", Left: 100, Top: 500, Width: 800, Height: 700},
		Section{ID: "cta", Left: 0, Top: 1200, Width: 1000, Height: 400},
	)
}

func TestDocumentLocate(t *testing.T) {
	d := testDocument()

	t.Run("missing element", func(t *testing.T) {
		if _, ok := d.Locate("pricing"); ok {
			t.Error("expected missing element to be absent")
		}
	})

	t.Run("relative to scroll", func(t *testing.T) {
		d.ScrollTo(300)
		r, ok := d.Locate("features")
		if !ok {
			t.Fatal("expected features to be found")
		}
		if r.Top != 200 || r.Left != 100 {
			t.Errorf("expected top=200 left=100, got %+v", r)
		}
	})
}

func TestDocumentScrollClamp(t *testing.T) {
	d := testDocument()

	d.ScrollTo(-50)
	if got := d.Viewport().ScrollY; got != 0 {
		t.Errorf("expected 0, got %v", got)
	}

	d.ScrollTo(5000)
	if got := d.Viewport().ScrollY; got != 1000 {
		t.Errorf("expected max scroll 1000, got %v", got)
	}

	d.Resize(1000, 1400)
	if got := d.Viewport().ScrollY; got != 200 {
		t.Errorf("expected scroll clamped to 200 after resize, got %v", got)
	}
}

func TestDocumentSections(t *testing.T) {
	d := testDocument()
	got := d.Sections()
	if len(got) != 3 || got[0].ID != "hero" || got[2].ID != "cta" {
		t.Errorf("unexpected sections order: %+v", got)
	}
	if d.Height() != 1600 {
		t.Errorf("expected height 1600, got %v", d.Height())
	}
}

func TestStackSections(t *testing.T) {
	got := StackSections(1280, 500, 100, "hero", "features")
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(got))
	}

	hero, features := got[0], got[1]
	if hero.ID != "hero" || hero.Top != 100 || hero.Left != 40 || hero.Width != 1200 {
		t.Errorf("unexpected hero section %+v", hero)
	}
	if features.Top != 700 {
		t.Errorf("expected features at 700, got %v", features.Top)
	}

	doc := NewDocument(Viewport{Width: 1280, Height: 800}, got...)
	if doc.Height() != 1200 {
		t.Errorf("expected document height 1200, got %v", doc.Height())
	}
}
