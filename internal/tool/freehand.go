package tool

import (
	"math"

	"github.com/starford/raido/internal/board"
)

// freehandTool records every pointer position of a stroke.
type freehandTool struct {
	base
	points []board.Point // world coordinates
	draft  *board.Element
}

func newFreehandTool(opts Options) *freehandTool {
	return &freehandTool{base: newBase(NameFreehand, opts, "Preview", "Commit")}
}

func (t *freehandTool) Busy() bool { return t.draft != nil }

func (t *freehandTool) PointerDown(ev PointerEvent) error {
	if err := t.check(); err != nil {
		return err
	}
	t.points = []board.Point{ev.World}
	t.draft = t.newElement(board.TypeFreehand, ev.World)
	t.normalize()
	t.preview(t.draft)
	return nil
}

func (t *freehandTool) PointerMove(ev PointerEvent) error {
	if t.draft == nil {
		return nil
	}
	if err := t.check(); err != nil {
		return err
	}
	t.add(ev.World)
	t.normalize()
	t.preview(t.draft)
	return nil
}

func (t *freehandTool) PointerUp(ev PointerEvent) error {
	if t.draft == nil {
		return nil
	}
	if err := t.check(); err != nil {
		return err
	}
	t.add(ev.World)
	t.normalize()
	draft := t.draft
	t.draft, t.points = nil, nil
	if len(draft.Points) < 2 {
		t.clearPreview()
		return nil
	}
	return t.commit(draft)
}

func (t *freehandTool) Cancel() {
	if t.draft != nil {
		t.draft, t.points = nil, nil
		t.clearPreview()
	}
}

func (t *freehandTool) add(p board.Point) {
	if last := t.points[len(t.points)-1]; last == p {
		return
	}
	t.points = append(t.points, p)
}

// normalize stores the stroke relative to its bounding box top-left.
func (t *freehandTool) normalize() {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range t.points {
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
	}
	d := t.draft
	d.X, d.Y = minX, minY
	d.Width, d.Height = maxX-minX, maxY-minY
	d.Points = make([]board.Point, len(t.points))
	for i, p := range t.points {
		d.Points[i] = board.Point{X: p.X - minX, Y: p.Y - minY}
	}
}
