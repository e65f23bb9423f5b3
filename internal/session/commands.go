package session

import (
	"fmt"
	"slices"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/board"
)

// Board commands. A remote element-change may remove the elements a
// command refers to; such commands then undo and redo as no-ops for the
// missing ids.

func (s *Session) indexOf(id string) int {
	return slices.IndexFunc(s.elements, func(e board.Element) bool { return e.ID == id })
}

type addCmd struct {
	s     *Session
	elems []board.Element
	desc  string
}

func (c *addCmd) Execute() error {
	for _, e := range c.elems {
		if c.s.indexOf(e.ID) < 0 {
			c.s.elements = append(c.s.elements, *e.Clone())
		}
	}
	return nil
}

func (c *addCmd) Undo() error {
	ids := make(map[string]struct{}, len(c.elems))
	for _, e := range c.elems {
		ids[e.ID] = struct{}{}
	}
	c.s.elements = slices.DeleteFunc(c.s.elements, func(e board.Element) bool {
		_, ok := ids[e.ID]
		return ok
	})
	return nil
}

func (c *addCmd) Description() string { return c.desc }

type removed struct {
	at int
	e  board.Element
}

type removeCmd struct {
	s       *Session
	ids     []string
	removed []removed
	applied bool
}

func (c *removeCmd) Execute() error {
	if !c.applied {
		for _, id := range c.ids {
			if c.s.indexOf(id) < 0 {
				return fmt.Errorf("session: remove %q: %w", id, apperr.ErrNotFound)
			}
		}
	}
	want := make(map[string]struct{}, len(c.ids))
	for _, id := range c.ids {
		want[id] = struct{}{}
	}
	c.removed = c.removed[:0]
	kept := c.s.elements[:0:0]
	for i, e := range c.s.elements {
		if _, ok := want[e.ID]; ok {
			c.removed = append(c.removed, removed{at: i, e: e})
			continue
		}
		kept = append(kept, e)
	}
	c.s.elements = kept
	c.applied = true
	return nil
}

// Undo puts the removed elements back at their former positions.
func (c *removeCmd) Undo() error {
	for _, r := range c.removed {
		if c.s.indexOf(r.e.ID) >= 0 {
			continue
		}
		at := min(r.at, len(c.s.elements))
		c.s.elements = slices.Insert(c.s.elements, at, *r.e.Clone())
	}
	return nil
}

func (c *removeCmd) Description() string {
	if len(c.ids) == 1 {
		return "remove element"
	}
	return fmt.Sprintf("remove %d elements", len(c.ids))
}

type updateCmd struct {
	s       *Session
	before  board.Element
	after   board.Element
	applied bool
}

func (c *updateCmd) Execute() error {
	i := c.s.indexOf(c.after.ID)
	if i < 0 {
		if !c.applied {
			return fmt.Errorf("session: update %q: %w", c.after.ID, apperr.ErrNotFound)
		}
		return nil
	}
	if !c.applied {
		c.before = *c.s.elements[i].Clone()
		c.applied = true
	}
	c.s.elements[i] = *c.after.Clone()
	return nil
}

func (c *updateCmd) Undo() error {
	if i := c.s.indexOf(c.before.ID); i >= 0 {
		c.s.elements[i] = *c.before.Clone()
	}
	return nil
}

func (c *updateCmd) Description() string { return "update " + string(c.after.Type) }

type replaceCmd struct {
	s       *Session
	before  []board.Element
	after   []board.Element
	desc    string
	applied bool
}

func (c *replaceCmd) Execute() error {
	if !c.applied {
		c.before = cloneElements(c.s.elements)
		c.applied = true
	}
	c.s.elements = cloneElements(c.after)
	return nil
}

func (c *replaceCmd) Undo() error {
	c.s.elements = cloneElements(c.before)
	return nil
}

func (c *replaceCmd) Description() string {
	if c.desc == "" {
		return "replace elements"
	}
	return c.desc
}
