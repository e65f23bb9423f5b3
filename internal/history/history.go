// Package history implements a bounded undo/redo log.
package history

import "fmt"

// DefaultDepth is used when New is given a non-positive depth.
const DefaultDepth = 100

// Command is a reversible mutation.
type Command interface {
	Execute() error
	Undo() error
	Description() string
}

// History owns an ordered command log and a cursor at the last applied
// entry. It is not safe for concurrent use.
type History struct {
	entries  []Command
	cursor   int // number of applied entries
	maxDepth int
}

// New returns a history keeping at most maxDepth commands.
func New(maxDepth int) *History {
	if maxDepth <= 0 {
		maxDepth = DefaultDepth
	}
	return &History{maxDepth: maxDepth}
}

// Execute runs cmd and records it. Redo entries beyond the cursor are
// discarded and the oldest entry is evicted once the depth is exceeded. A
// command that fails is not recorded.
func (h *History) Execute(cmd Command) error {
	if err := cmd.Execute(); err != nil {
		return fmt.Errorf("history: execute %q: %w", cmd.Description(), err)
	}
	clear(h.entries[h.cursor:])
	h.entries = append(h.entries[:h.cursor], cmd)
	if len(h.entries) > h.maxDepth {
		drop := len(h.entries) - h.maxDepth
		clear(h.entries[:drop])
		h.entries = h.entries[drop:]
	}
	h.cursor = len(h.entries)
	return nil
}

// Undo reverts the last applied command. It reports false when there is
// nothing to undo. On error the cursor does not move.
func (h *History) Undo() (bool, error) {
	if !h.CanUndo() {
		return false, nil
	}
	cmd := h.entries[h.cursor-1]
	if err := cmd.Undo(); err != nil {
		return false, fmt.Errorf("history: undo %q: %w", cmd.Description(), err)
	}
	h.cursor--
	return true, nil
}

// Redo re-applies the next command. It reports false when there is
// nothing to redo. On error the cursor does not move.
func (h *History) Redo() (bool, error) {
	if !h.CanRedo() {
		return false, nil
	}
	cmd := h.entries[h.cursor]
	if err := cmd.Execute(); err != nil {
		return false, fmt.Errorf("history: redo %q: %w", cmd.Description(), err)
	}
	h.cursor++
	return true, nil
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.entries) }

// Len returns the number of recorded commands, applied or not.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the number of applied commands.
func (h *History) Cursor() int { return h.cursor }

// Clear drops every entry.
func (h *History) Clear() {
	clear(h.entries)
	h.entries = h.entries[:0]
	h.cursor = 0
}

// Descriptions lists the recorded commands oldest first.
func (h *History) Descriptions() []string {
	out := make([]string, len(h.entries))
	for i, c := range h.entries {
		out[i] = c.Description()
	}
	return out
}
