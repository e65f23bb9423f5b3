// Package session is the coordinating context of one board editor. It owns
// the element list, the draft preview, the viewport, the tool manager, the
// command history and the collaborator roster, and is the only code that
// mutates them. A Session is not safe for concurrent use.
package session

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/collab"
	"github.com/starford/raido/internal/convert"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/layout"
	"github.com/starford/raido/internal/tool"
)

// Option configures a Session.
type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithBroadcast installs fn as the receiver of outbound events. fn must
// not block.
func WithBroadcast(fn func(collab.Event)) Option {
	return func(s *Session) { s.broadcast = fn }
}

// WithUser sets the local user id stamped on events and new elements.
func WithUser(id string) Option {
	return func(s *Session) { s.userID = id }
}

func WithHistoryDepth(n int) Option {
	return func(s *Session) { s.historyDepth = n }
}

func WithToolOptions(o tool.Options) Option {
	return func(s *Session) { s.toolOpts = o }
}

func WithLayoutOptions(o layout.Options) Option {
	return func(s *Session) { s.layoutOpts = o }
}

// WithRegistry replaces the default tool registry.
func WithRegistry(r *tool.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// Session edits one board.
type Session struct {
	boardID  string
	userID   string
	elements []board.Element
	draft    *board.Element
	viewport board.Viewport

	tools   *tool.Manager
	history *history.History
	roster  *collab.Roster

	registry     *tool.Registry
	toolOpts     tool.Options
	layoutOpts   layout.Options
	historyDepth int
	broadcast    func(collab.Event)
	logger       *slog.Logger
}

// New opens a session on a copy of b. A nil b starts an empty board.
func New(b *board.Board, opts ...Option) *Session {
	if b == nil {
		b = &board.Board{ID: board.NewID(), Viewport: board.DefaultViewport()}
	}
	s := &Session{
		boardID:    b.ID,
		userID:     "local",
		elements:   cloneElements(b.Elements),
		viewport:   b.Viewport,
		toolOpts:   tool.DefaultOptions(),
		layoutOpts: layout.DefaultOptions(),
		roster:     collab.NewRoster(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.viewport.Zoom <= 0 {
		s.viewport.Zoom = 1
	}
	if s.toolOpts.CreatorID == "" {
		s.toolOpts.CreatorID = s.userID
	}
	if s.registry == nil {
		s.registry = tool.DefaultRegistry(s.toolOpts)
	}
	s.history = history.New(s.historyDepth)
	s.tools = tool.NewManager(s.registry, s.callbacks(), s.logger)
	return s
}

func (s *Session) callbacks() *tool.Callbacks {
	return &tool.Callbacks{
		Preview: func(e *board.Element) { s.draft = e },
		Commit: func(e board.Element) error {
			e.Z = board.MaxZ(s.elements) + 1
			return s.execute(&addCmd{s: s, elems: []board.Element{e}, desc: "add " + string(e.Type)})
		},
		Update: func(e board.Element) error {
			return s.execute(&updateCmd{s: s, after: e})
		},
		Remove: func(id string) error {
			return s.execute(&removeCmd{s: s, ids: []string{id}})
		},
		Pan: func(dx, dy float64) { s.viewport = s.viewport.Pan(dx, dy) },
		HitTest: func(p board.Point) (*board.Element, bool) {
			return board.TopmostAt(s.elements, p)
		},
	}
}

func (s *Session) BoardID() string                  { return s.boardID }
func (s *Session) UserID() string                   { return s.userID }
func (s *Session) Tools() *tool.Manager             { return s.tools }
func (s *Session) History() *history.History        { return s.history }
func (s *Session) Roster() *collab.Roster           { return s.roster }
func (s *Session) Viewport() board.Viewport         { return s.viewport }
func (s *Session) SetViewport(v board.Viewport)     { s.viewport = v }
func (s *Session) Draft() *board.Element            { return s.draft }
func (s *Session) Elements() []board.Element        { return cloneElements(s.elements) }
func (s *Session) Activate(name string) error       { return s.tools.Activate(name) }
func (s *Session) Pan(dx, dy float64)               { s.viewport = s.viewport.Pan(dx, dy) }
func (s *Session) ZoomAt(f float64, at board.Point) { s.viewport = s.viewport.ZoomAt(f, at) }

// Rendered returns the committed elements with the draft merged in. A draft
// sharing an id with a committed element replaces it.
func (s *Session) Rendered() []board.Element {
	out := cloneElements(s.elements)
	if s.draft == nil {
		return out
	}
	for i := range out {
		if out[i].ID == s.draft.ID {
			out[i] = *s.draft.Clone()
			return out
		}
	}
	return append(out, *s.draft.Clone())
}

// Patch returns the persistable part of the session.
func (s *Session) Patch() board.Patch {
	elems := s.Elements()
	vp := s.viewport
	return board.Patch{Elements: &elems, Viewport: &vp}
}

func (s *Session) pointer(screen board.Point) tool.PointerEvent {
	return tool.PointerEvent{World: s.viewport.ScreenToWorld(screen), Screen: screen}
}

// PointerDown, PointerMove and PointerUp take screen coordinates.
func (s *Session) PointerDown(screen board.Point) error {
	return s.tools.PointerDown(s.pointer(screen))
}

func (s *Session) PointerMove(screen board.Point) error {
	ev := s.pointer(screen)
	s.emit(collab.Event{Type: collab.EventCursor, Cursor: &ev.World})
	return s.tools.PointerMove(ev)
}

func (s *Session) PointerUp(screen board.Point) error {
	return s.tools.PointerUp(s.pointer(screen))
}

func (s *Session) Key(ev tool.KeyEvent) (bool, error) {
	return s.tools.Key(ev)
}

func (s *Session) Undo() (bool, error) {
	ok, err := s.history.Undo()
	if ok {
		s.changed()
	}
	return ok, err
}

func (s *Session) Redo() (bool, error) {
	ok, err := s.history.Redo()
	if ok {
		s.changed()
	}
	return ok, err
}

// ReplaceAll swaps the whole element list as one undoable step.
func (s *Session) ReplaceAll(elements []board.Element, desc string) error {
	return s.execute(&replaceCmd{s: s, after: cloneElements(elements), desc: desc})
}

// LoadDiagram compiles text and adds the produced elements above the
// current ones as one undoable step. The AST is returned even when layout
// or conversion fails.
func (s *Session) LoadDiagram(text string) (*diagram.AST, error) {
	conv := convert.New(s.userID)
	conv.BaseZ = board.MaxZ(s.elements) + 1
	elems, ast, err := conv.Compile(text, s.layoutOpts)
	if err != nil {
		return ast, fmt.Errorf("session: load diagram: %w", err)
	}
	if len(elems) == 0 {
		return ast, nil
	}
	desc := fmt.Sprintf("add %s diagram", ast.Kind)
	return ast, s.execute(&addCmd{s: s, elems: elems, desc: desc})
}

// ApplyRemote consumes an inbound collaboration event. Element changes
// replace the element list without touching history; presence events go
// to the roster. Events from the local user are ignored.
func (s *Session) ApplyRemote(ev collab.Event) bool {
	if ev.UserID == s.userID {
		return false
	}
	if ev.Type == collab.EventElementChange {
		s.elements = cloneElements(ev.Elements)
		s.logger.Debug("remote element change",
			slog.String("board", s.boardID), slog.String("user", ev.UserID))
		return true
	}
	return s.roster.Apply(ev)
}

// execute runs cmd through the history and broadcasts the result.
func (s *Session) execute(cmd history.Command) error {
	if err := s.history.Execute(cmd); err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *Session) changed() {
	s.emit(collab.Event{Type: collab.EventElementChange, Elements: s.Elements()})
}

func (s *Session) emit(ev collab.Event) {
	if s.broadcast == nil {
		return
	}
	ev.BoardID, ev.UserID = s.boardID, s.userID
	ev.At = time.Now().UTC()
	s.broadcast(ev)
}

func cloneElements(in []board.Element) []board.Element {
	if in == nil {
		return nil
	}
	out := slices.Clone(in)
	for i := range out {
		out[i].Points = slices.Clone(out[i].Points)
	}
	return out
}
