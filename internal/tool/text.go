package tool

import (
	"strings"
	"unicode/utf8"

	"github.com/starford/raido/internal/board"
)

// textTool places a text element on pointer-down and edits it with keys.
// Enter commits, Shift+Enter inserts a newline and Escape discards.
type textTool struct {
	base
	draft *board.Element
}

func newTextTool(opts Options) *textTool {
	return &textTool{base: newBase(NameText, opts, "Preview", "Commit")}
}

func (t *textTool) Busy() bool { return t.draft != nil }

func (t *textTool) PointerDown(ev PointerEvent) error {
	if err := t.check(); err != nil {
		return err
	}
	if t.draft != nil {
		return t.finish()
	}
	t.draft = t.newElement(board.TypeText, ev.World)
	t.draft.Style.FontSize = t.opts.FontSize
	t.resize()
	t.preview(t.draft)
	return nil
}

func (t *textTool) PointerMove(PointerEvent) error { return nil }
func (t *textTool) PointerUp(PointerEvent) error   { return nil }

func (t *textTool) Key(ev KeyEvent) (bool, error) {
	if t.draft == nil {
		return false, nil
	}
	if err := t.check(); err != nil {
		return true, err
	}
	switch {
	case ev.Key == KeyEnter && ev.Shift:
		t.draft.Text += "\n"
	case ev.Key == KeyEnter:
		return true, t.finish()
	case ev.Key == KeyEscape:
		t.Cancel()
		return true, nil
	case ev.Key == KeyBackspace:
		if _, size := utf8.DecodeLastRuneInString(t.draft.Text); size > 0 {
			t.draft.Text = t.draft.Text[:len(t.draft.Text)-size]
		}
	case utf8.RuneCountInString(ev.Key) == 1:
		t.draft.Text += ev.Key
	default:
		return false, nil
	}
	t.resize()
	t.preview(t.draft)
	return true, nil
}

// finish commits the draft if it has any text and discards it otherwise.
func (t *textTool) finish() error {
	draft := t.draft
	t.draft = nil
	if strings.TrimSpace(draft.Text) == "" {
		t.clearPreview()
		return nil
	}
	return t.commit(draft)
}

func (t *textTool) Cancel() {
	if t.draft != nil {
		t.draft = nil
		t.clearPreview()
	}
}

// resize estimates the text box from the longest line and line count.
func (t *textTool) resize() {
	lines := strings.Split(t.draft.Text, "\n")
	longest := 0
	for _, l := range lines {
		longest = max(longest, utf8.RuneCountInString(l))
	}
	size := t.draft.Style.FontSize
	t.draft.Width = max(float64(longest), 1) * size * 0.6
	t.draft.Height = float64(len(lines)) * size * 1.25
}
