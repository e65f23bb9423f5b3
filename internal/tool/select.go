package tool

import "github.com/starford/raido/internal/board"

// selectTool picks the topmost element under the pointer and drags it.
// The preview keeps the element id so renderers replace rather than add.
type selectTool struct {
	base
	selected string
	start    board.Point
	orig     *board.Element
	draft    *board.Element
}

func newSelectTool(opts Options) *selectTool {
	return &selectTool{base: newBase(NameSelect, opts, "HitTest", "Preview", "Update")}
}

// Selected returns the id of the selected element, if any.
func (t *selectTool) Selected() string { return t.selected }

func (t *selectTool) Busy() bool { return t.draft != nil }

func (t *selectTool) PointerDown(ev PointerEvent) error {
	if err := t.check(); err != nil {
		return err
	}
	hit, ok := t.cb.HitTest(ev.World)
	if !ok {
		t.selected = ""
		return nil
	}
	t.selected = hit.ID
	if hit.Locked {
		return nil
	}
	t.start = ev.World
	t.orig = hit.Clone()
	t.draft = hit.Clone()
	return nil
}

func (t *selectTool) PointerMove(ev PointerEvent) error {
	if t.draft == nil {
		return nil
	}
	if err := t.check(); err != nil {
		return err
	}
	t.move(ev.World)
	t.preview(t.draft)
	return nil
}

func (t *selectTool) PointerUp(ev PointerEvent) error {
	if t.draft == nil {
		return nil
	}
	if err := t.check(); err != nil {
		return err
	}
	t.move(ev.World)
	draft, orig := t.draft, t.orig
	t.draft, t.orig = nil, nil
	t.clearPreview()
	if draft.X == orig.X && draft.Y == orig.Y {
		return nil
	}
	draft.UpdatedAt = t.opts.Now().UTC()
	return t.cb.Update(*draft)
}

// Key deletes the selection on Delete or Backspace when Remove is wired.
func (t *selectTool) Key(ev KeyEvent) (bool, error) {
	if t.selected == "" || (ev.Key != KeyDelete && ev.Key != KeyBackspace) {
		return false, nil
	}
	if t.cb == nil || t.cb.Remove == nil {
		return true, &ContractError{Tool: t.name, Callback: "Remove"}
	}
	id := t.selected
	t.selected = ""
	return true, t.cb.Remove(id)
}

func (t *selectTool) Cancel() {
	if t.draft != nil {
		t.draft, t.orig = nil, nil
		t.clearPreview()
	}
}

func (t *selectTool) move(p board.Point) {
	t.draft.X = t.orig.X + p.X - t.start.X
	t.draft.Y = t.orig.Y + p.Y - t.start.Y
}

// eraserTool removes every unlocked element touched while the pointer is
// down.
type eraserTool struct {
	base
	down bool
}

func newEraserTool(opts Options) *eraserTool {
	return &eraserTool{base: newBase(NameEraser, opts, "HitTest", "Remove")}
}

func (t *eraserTool) Busy() bool { return t.down }

func (t *eraserTool) PointerDown(ev PointerEvent) error {
	if err := t.check(); err != nil {
		return err
	}
	t.down = true
	return t.erase(ev.World)
}

func (t *eraserTool) PointerMove(ev PointerEvent) error {
	if !t.down {
		return nil
	}
	if err := t.check(); err != nil {
		return err
	}
	return t.erase(ev.World)
}

func (t *eraserTool) PointerUp(PointerEvent) error {
	t.down = false
	return nil
}

func (t *eraserTool) Cancel() { t.down = false }

func (t *eraserTool) erase(p board.Point) error {
	hit, ok := t.cb.HitTest(p)
	if !ok || hit.Locked {
		return nil
	}
	return t.cb.Remove(hit.ID)
}
