package tool

import (
	"math"

	"github.com/starford/raido/internal/board"
)

// shapeTool draws rectangles, circles, diamonds, lines and arrows by
// dragging from an origin.
type shapeTool struct {
	base
	kind         board.Type
	origin       board.Point
	originScreen board.Point
	draft        *board.Element
}

func newShapeTool(name string, kind board.Type, opts Options) *shapeTool {
	return &shapeTool{base: newBase(name, opts, "Preview", "Commit"), kind: kind}
}

func (t *shapeTool) Busy() bool { return t.draft != nil }

func (t *shapeTool) PointerDown(ev PointerEvent) error {
	if err := t.check(); err != nil {
		return err
	}
	t.origin, t.originScreen = ev.World, ev.Screen
	t.draft = t.newElement(t.kind, ev.World)
	t.reshape(ev.World)
	t.preview(t.draft)
	return nil
}

func (t *shapeTool) PointerMove(ev PointerEvent) error {
	if t.draft == nil {
		return nil
	}
	if err := t.check(); err != nil {
		return err
	}
	t.reshape(ev.World)
	t.preview(t.draft)
	return nil
}

func (t *shapeTool) PointerUp(ev PointerEvent) error {
	if t.draft == nil {
		return nil
	}
	if err := t.check(); err != nil {
		return err
	}
	t.reshape(ev.World)
	draft := t.draft
	t.draft = nil

	drag := math.Hypot(ev.Screen.X-t.originScreen.X, ev.Screen.Y-t.originScreen.Y)
	if drag < t.opts.DragThreshold {
		t.clearPreview()
		return nil
	}
	return t.commit(draft)
}

func (t *shapeTool) Cancel() {
	if t.draft != nil {
		t.draft = nil
		t.clearPreview()
	}
}

// reshape updates the draft geometry for the pointer at p. The draft id
// never changes during a drag.
func (t *shapeTool) reshape(p board.Point) {
	d := t.draft
	dx, dy := p.X-t.origin.X, p.Y-t.origin.Y
	switch t.kind {
	case board.TypeCircle:
		d.X, d.Y = t.origin.X, t.origin.Y
		d.Radius = math.Hypot(dx, dy)
	case board.TypeLine, board.TypeArrow:
		d.X, d.Y = t.origin.X, t.origin.Y
		d.Points = []board.Point{{X: 0, Y: 0}, {X: dx, Y: dy}}
	default:
		d.X, d.Y = min(t.origin.X, p.X), min(t.origin.Y, p.Y)
		d.Width, d.Height = math.Abs(dx), math.Abs(dy)
	}
}
