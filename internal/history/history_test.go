package history

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

// counter is a tiny board stand-in: commands append and remove values.
type counter struct{ values []int }

type pushCmd struct {
	c        *counter
	v        int
	failRun  bool
	failUndo bool
}

func (p *pushCmd) Execute() error {
	if p.failRun {
		return errors.New("boom")
	}
	p.c.values = append(p.c.values, p.v)
	return nil
}

func (p *pushCmd) Undo() error {
	if p.failUndo {
		return errors.New("undo boom")
	}
	p.c.values = p.c.values[:len(p.c.values)-1]
	return nil
}

func (p *pushCmd) Description() string { return fmt.Sprintf("push %d", p.v) }

func TestUndoRedoLaw(t *testing.T) {
	for n := 1; n <= 6; n++ {
		c := &counter{values: []int{-1}}
		before := slices.Clone(c.values)
		h := New(50)
		for i := range n {
			if err := h.Execute(&pushCmd{c: c, v: i}); err != nil {
				t.Fatalf("Execute: %v", err)
			}
		}
		after := slices.Clone(c.values)

		for range n {
			if ok, err := h.Undo(); !ok || err != nil {
				t.Fatalf("Undo = %v, %v", ok, err)
			}
		}
		if !slices.Equal(c.values, before) {
			t.Errorf("n=%d after undo: %v, want %v", n, c.values, before)
		}
		for range n {
			if ok, err := h.Redo(); !ok || err != nil {
				t.Fatalf("Redo = %v, %v", ok, err)
			}
		}
		if !slices.Equal(c.values, after) {
			t.Errorf("n=%d after redo: %v, want %v", n, c.values, after)
		}
	}
}

func TestBounds(t *testing.T) {
	h := New(10)
	if ok, err := h.Undo(); ok || err != nil {
		t.Errorf("Undo on empty = %v, %v", ok, err)
	}
	if ok, err := h.Redo(); ok || err != nil {
		t.Errorf("Redo on empty = %v, %v", ok, err)
	}

	c := &counter{}
	_ = h.Execute(&pushCmd{c: c, v: 1})
	if ok, _ := h.Redo(); ok {
		t.Error("Redo at the end should be a no-op")
	}
	_, _ = h.Undo()
	if ok, _ := h.Undo(); ok {
		t.Error("Undo at the start should be a no-op")
	}
}

func TestExecuteTruncatesFuture(t *testing.T) {
	c := &counter{}
	h := New(10)
	_ = h.Execute(&pushCmd{c: c, v: 1})
	_ = h.Execute(&pushCmd{c: c, v: 2})
	_, _ = h.Undo()
	_ = h.Execute(&pushCmd{c: c, v: 3})

	if h.CanRedo() {
		t.Error("future should be discarded")
	}
	if got := h.Descriptions(); !slices.Equal(got, []string{"push 1", "push 3"}) {
		t.Errorf("Descriptions = %v", got)
	}
	if !slices.Equal(c.values, []int{1, 3}) {
		t.Errorf("values = %v", c.values)
	}
}

func TestDepthEviction(t *testing.T) {
	c := &counter{}
	h := New(3)
	for i := range 5 {
		_ = h.Execute(&pushCmd{c: c, v: i})
	}
	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	if got := h.Descriptions(); !slices.Equal(got, []string{"push 2", "push 3", "push 4"}) {
		t.Errorf("Descriptions = %v", got)
	}
	for h.CanUndo() {
		_, _ = h.Undo()
	}
	if !slices.Equal(c.values, []int{0, 1}) {
		t.Errorf("values after undoing everything = %v, want [0 1]", c.values)
	}
}

func TestFailingCommands(t *testing.T) {
	c := &counter{}
	h := New(10)
	if err := h.Execute(&pushCmd{c: c, v: 1, failRun: true}); err == nil {
		t.Fatal("expected error")
	}
	if h.Len() != 0 {
		t.Errorf("failed command recorded: Len = %d", h.Len())
	}

	_ = h.Execute(&pushCmd{c: c, v: 2, failUndo: true})
	ok, err := h.Undo()
	if ok || err == nil {
		t.Fatalf("Undo = %v, %v; want false and an error", ok, err)
	}
	if h.Cursor() != 1 || !h.CanUndo() {
		t.Errorf("cursor moved after failed undo: %d", h.Cursor())
	}
}

func TestClearAndDefaults(t *testing.T) {
	h := New(0)
	if h.maxDepth != DefaultDepth {
		t.Errorf("maxDepth = %d, want %d", h.maxDepth, DefaultDepth)
	}
	c := &counter{}
	_ = h.Execute(&pushCmd{c: c, v: 1})
	h.Clear()
	if h.Len() != 0 || h.CanUndo() || h.CanRedo() {
		t.Error("Clear left entries behind")
	}
}
