// Package tool implements the drawing tools of the board editor and the
// manager that keeps exactly one of them active.
//
// Tools never touch board state directly. They report previews, commits,
// updates, removals and pan deltas through a Callbacks value installed on
// activation.
package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/board"
)

// Tool names.
const (
	NameSelect    = "select"
	NameRectangle = "rectangle"
	NameCircle    = "circle"
	NameDiamond   = "diamond"
	NameLine      = "line"
	NameArrow     = "arrow"
	NameFreehand  = "freehand"
	NameText      = "text"
	NamePan       = "pan"
	NameEraser    = "eraser"
)

// Key names understood by the tools. Any other single-rune key is text.
const (
	KeyEnter     = "Enter"
	KeyEscape    = "Escape"
	KeyBackspace = "Backspace"
	KeyDelete    = "Delete"
)

var (
	// ErrContractMissing is matched by every *ContractError.
	ErrContractMissing = errors.New("tool: callback contract not installed")
	// ErrUnknownTool is returned when activating a name that is not registered.
	ErrUnknownTool = errors.New("tool: unknown tool")
)

// ContractError reports a tool action invoked without a callback it needs.
type ContractError struct {
	Tool     string
	Callback string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("tool %s: %s callback not installed", e.Tool, e.Callback)
}

func (e *ContractError) Unwrap() error { return ErrContractMissing }

// PointerEvent carries a pointer position in world and screen coordinates.
type PointerEvent struct {
	World  board.Point
	Screen board.Point
	Shift  bool
}

// KeyEvent is a key press.
type KeyEvent struct {
	Key   string
	Shift bool
}

// Callbacks is the contract between tools and the editing session.
type Callbacks struct {
	// Preview shows the in-progress element. nil clears it.
	Preview func(e *board.Element)
	Commit  func(e board.Element) error
	Update  func(e board.Element) error
	Remove  func(id string) error
	// Pan receives screen-space deltas.
	Pan     func(dx, dy float64)
	HitTest func(p board.Point) (*board.Element, bool)
}

// Tool is a pointer-driven editor tool.
type Tool interface {
	Name() string
	// Activate installs the callbacks and fails when a required one is nil.
	Activate(cb *Callbacks) error
	Deactivate()
	PointerDown(ev PointerEvent) error
	PointerMove(ev PointerEvent) error
	PointerUp(ev PointerEvent) error
	// Key reports whether the tool consumed the key.
	Key(ev KeyEvent) (bool, error)
	// Cancel aborts the gesture in progress and clears its preview.
	Cancel()
	// Busy reports whether a gesture is in progress.
	Busy() bool
}

// Options configures the tools created by DefaultRegistry.
type Options struct {
	// DragThreshold is the minimum drag, in screen pixels, that creates
	// a shape.
	DragThreshold float64
	CreatorID     string
	Style         board.Style
	FontSize      float64
	NewID         func() string
	Now           func() time.Time
}

// DefaultOptions returns the options used by the editor.
func DefaultOptions() Options {
	return Options{
		DragThreshold: 3,
		Style:         board.DefaultStyle(),
		FontSize:      20,
		NewID:         board.NewID,
		Now:           time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DragThreshold < 0 {
		o.DragThreshold = d.DragThreshold
	}
	if o.Style == (board.Style{}) {
		o.Style = d.Style
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.NewID == nil {
		o.NewID = d.NewID
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}

// base carries what every tool shares: its name, options and the
// installed callbacks.
type base struct {
	name     string
	opts     Options
	cb       *Callbacks
	requires []string
}

func newBase(name string, opts Options, requires ...string) base {
	return base{name: name, opts: opts.withDefaults(), requires: requires}
}

func (b *base) Name() string { return b.name }

func (b *base) Activate(cb *Callbacks) error {
	b.cb = cb
	return b.check()
}

func (b *base) Deactivate() { b.cb = nil }

func (b *base) Key(KeyEvent) (bool, error) { return false, nil }

// check verifies that every required callback is installed.
func (b *base) check() error {
	for _, name := range b.requires {
		if !b.has(name) {
			return &ContractError{Tool: b.name, Callback: name}
		}
	}
	return nil
}

func (b *base) has(name string) bool {
	if b.cb == nil {
		return false
	}
	switch name {
	case "Preview":
		return b.cb.Preview != nil
	case "Commit":
		return b.cb.Commit != nil
	case "Update":
		return b.cb.Update != nil
	case "Remove":
		return b.cb.Remove != nil
	case "Pan":
		return b.cb.Pan != nil
	case "HitTest":
		return b.cb.HitTest != nil
	}
	return false
}

// clearPreview clears the preview when a Preview callback is installed.
func (b *base) clearPreview() {
	if b.cb != nil && b.cb.Preview != nil {
		b.cb.Preview(nil)
	}
}

func (b *base) preview(e *board.Element) {
	b.cb.Preview(e.Clone())
}

func (b *base) newElement(t board.Type, at board.Point) *board.Element {
	now := b.opts.Now().UTC()
	return &board.Element{
		ID:        b.opts.NewID(),
		Type:      t,
		X:         at.X,
		Y:         at.Y,
		Style:     b.opts.Style,
		CreatorID: b.opts.CreatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// commit hands a copy of draft to Commit under a fresh id.
func (b *base) commit(draft *board.Element) error {
	e := *draft.Clone()
	e.ID = b.opts.NewID()
	now := b.opts.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	b.clearPreview()
	return b.cb.Commit(e)
}
