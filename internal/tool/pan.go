package tool

import "github.com/starford/raido/internal/board"

// panTool reports screen deltas while dragging. It creates no elements.
type panTool struct {
	base
	dragging bool
	last     board.Point
}

func newPanTool(opts Options) *panTool {
	return &panTool{base: newBase(NamePan, opts, "Pan")}
}

func (t *panTool) Busy() bool { return t.dragging }

func (t *panTool) PointerDown(ev PointerEvent) error {
	if err := t.check(); err != nil {
		return err
	}
	t.dragging, t.last = true, ev.Screen
	return nil
}

func (t *panTool) PointerMove(ev PointerEvent) error {
	if !t.dragging {
		return nil
	}
	if err := t.check(); err != nil {
		return err
	}
	dx, dy := ev.Screen.X-t.last.X, ev.Screen.Y-t.last.Y
	t.last = ev.Screen
	if dx != 0 || dy != 0 {
		t.cb.Pan(dx, dy)
	}
	return nil
}

func (t *panTool) PointerUp(ev PointerEvent) error {
	if !t.dragging {
		return nil
	}
	err := t.PointerMove(ev)
	t.dragging = false
	return err
}

func (t *panTool) Cancel() { t.dragging = false }
