package board

import (
	"math"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestViewportRoundTrip(t *testing.T) {
	v := Viewport{X: 100, Y: -50, Zoom: 2}
	p := Point{X: 30, Y: 40}
	got := v.WorldToScreen(v.ScreenToWorld(p))
	if !approx(got.X, p.X) || !approx(got.Y, p.Y) {
		t.Errorf("round trip = %+v, want %+v", got, p)
	}
	w := v.ScreenToWorld(Point{X: 0, Y: 0})
	if w != (Point{X: 100, Y: -50}) {
		t.Errorf("origin maps to %+v", w)
	}
}

func TestViewportPan(t *testing.T) {
	v := Viewport{Zoom: 2}.Pan(20, 10)
	if v.X != -10 || v.Y != -5 {
		t.Errorf("pan = %+v, want X=-10 Y=-5", v)
	}
}

func TestViewportZoomAt(t *testing.T) {
	v := DefaultViewport()
	anchor := Point{X: 200, Y: 100}
	before := v.ScreenToWorld(anchor)

	v = v.ZoomAt(4, anchor)
	if v.Zoom != 4 {
		t.Fatalf("zoom = %v, want 4", v.Zoom)
	}
	after := v.ScreenToWorld(anchor)
	if !approx(before.X, after.X) || !approx(before.Y, after.Y) {
		t.Errorf("anchor moved from %+v to %+v", before, after)
	}

	if z := v.ZoomAt(1000, anchor).Zoom; z != MaxZoom {
		t.Errorf("zoom not clamped to max: %v", z)
	}
	if z := v.ZoomAt(0.0001, anchor).Zoom; z != MinZoom {
		t.Errorf("zoom not clamped to min: %v", z)
	}
	if got := v.ZoomAt(-1, anchor); got != v {
		t.Errorf("negative factor changed viewport: %+v", got)
	}
}

func TestElementHit(t *testing.T) {
	tests := []struct {
		name string
		e    Element
		p    Point
		want bool
	}{
		{"rect inside", Element{Type: TypeRectangle, X: 0, Y: 0, Width: 10, Height: 10}, Point{5, 5}, true},
		{"rect outside", Element{Type: TypeRectangle, X: 0, Y: 0, Width: 10, Height: 10}, Point{15, 5}, false},
		{"circle inside", Element{Type: TypeCircle, X: 50, Y: 50, Radius: 10}, Point{55, 55}, true},
		{"circle outside", Element{Type: TypeCircle, X: 50, Y: 50, Radius: 10}, Point{70, 70}, false},
		{"line near", Element{Type: TypeLine, X: 0, Y: 0, Points: []Point{{0, 0}, {100, 0}}}, Point{50, 4}, true},
		{"line far", Element{Type: TypeLine, X: 0, Y: 0, Points: []Point{{0, 0}, {100, 0}}}, Point{50, 20}, false},
		{"freehand offset", Element{Type: TypeFreehand, X: 10, Y: 10, Points: []Point{{0, 0}, {10, 10}}}, Point{15, 15}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Hit(tt.p); got != tt.want {
				t.Errorf("Hit(%+v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestTopmostAt(t *testing.T) {
	elems := []Element{
		{ID: "low", Type: TypeRectangle, Width: 100, Height: 100, Z: 1},
		{ID: "high", Type: TypeRectangle, Width: 50, Height: 50, Z: 5},
		{ID: "other", Type: TypeRectangle, X: 500, Width: 10, Height: 10, Z: 9},
	}
	hit, ok := TopmostAt(elems, Point{10, 10})
	if !ok || hit.ID != "high" {
		t.Fatalf("TopmostAt = %v, %v; want high", hit, ok)
	}
	if _, ok := TopmostAt(elems, Point{300, 300}); ok {
		t.Error("expected no hit")
	}
	if z := MaxZ(elems); z != 9 {
		t.Errorf("MaxZ = %d, want 9", z)
	}
	if z := MaxZ(nil); z != -1 {
		t.Errorf("MaxZ(nil) = %d, want -1", z)
	}
}

func TestCloneIsDeep(t *testing.T) {
	e := &Element{ID: "a", Points: []Point{{1, 1}}}
	c := e.Clone()
	c.Points[0].X = 99
	if e.Points[0].X != 1 {
		t.Error("clone shares points with original")
	}
}

func TestBoardApply(t *testing.T) {
	b := &Board{ID: "b1", Title: "Old", Version: 3}
	title := "New"
	elems := []Element{{ID: "x", Type: TypeImage, Src: "/attachments/a.png"}, {ID: "y", Type: TypeText, Text: "hello"}}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	b.Apply(Patch{Title: &title, Elements: &elems}, now)
	if b.Title != "New" || len(b.Elements) != 2 || b.Version != 4 || !b.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected board after apply: %+v", b)
	}
	if b.Viewport != (Viewport{}) {
		t.Errorf("viewport changed: %+v", b.Viewport)
	}
	if got := b.Images(); len(got) != 1 || got[0] != "/attachments/a.png" {
		t.Errorf("Images = %v", got)
	}
	if got := b.Text(); got != "New\nhello" {
		t.Errorf("Text = %q", got)
	}
	if _, ok := b.Element("y"); !ok {
		t.Error("Element(y) not found")
	}
	if !(Patch{}).Empty() {
		t.Error("zero patch should be empty")
	}
}

func TestTypeValid(t *testing.T) {
	if !TypeFreehand.Valid() {
		t.Error("freehand should be valid")
	}
	if Type("hexagon").Valid() {
		t.Error("hexagon should be invalid")
	}
}
