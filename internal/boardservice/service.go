// Package boardservice coordinates board files, the catalog index and the
// collaboration broker.
package boardservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/collab"
	"github.com/starford/raido/internal/convert"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/generate"
	"github.com/starford/raido/internal/index"
	"github.com/starford/raido/internal/layout"
	"github.com/starford/raido/internal/storage"
)

// ServerUser is the sender id of events published by the service itself.
const ServerUser = "server"

// BoardDetail is a board together with the checksum of its stored file.
type BoardDetail struct {
	board.Board
	Checksum string `json:"checksum"`
}

// CreateInput describes a new board. Source, when set, is compiled onto the
// board. Prompt, when set and Source is empty, is turned into Source by the
// configured generator.
type CreateInput struct {
	ID     string
	Title  string
	Source string
	Prompt string
	Kind   diagram.Kind
}

// DiagramError reports diagram source that failed validation.
type DiagramError struct {
	Result diagram.Result
}

func (e *DiagramError) Error() string {
	return "boardservice: invalid diagram: " + strings.Join(e.Result.Errors, "; ")
}

func (e *DiagramError) Unwrap() error { return apperr.ErrInvalid }

// Option configures a Service.
type Option func(*Service)

// WithBroker publishes board changes to b.
func WithBroker(b collab.Broker) Option {
	return func(s *Service) { s.broker = b }
}

// WithGenerator enables prompt-based diagram generation.
func WithGenerator(g generate.Generator) Option {
	return func(s *Service) { s.gen = g }
}

func WithLayoutOptions(o layout.Options) Option {
	return func(s *Service) { s.layout = o }
}

// WithStrictReferences selects strict reference checking for submitted
// diagram source.
func WithStrictReferences(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

// WithCatalog reports board creation, updates and deletion to fn, which
// must not block.
func WithCatalog(fn func(kind, id string)) Option {
	return func(s *Service) { s.catalog = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service coordinates storage and index operations.
type Service struct {
	store   storage.Provider
	db      *index.DB
	broker  collab.Broker
	catalog func(kind, id string)
	gen     generate.Generator
	layout  layout.Options
	strict  bool
	logger  *slog.Logger
	now     func() time.Time

	mu sync.Mutex // serializes read-modify-write of board files
}

// NewService creates a new board service.
func NewService(store storage.Provider, db *index.DB, opts ...Option) *Service {
	s := &Service{
		store:  store,
		db:     db,
		layout: layout.DefaultOptions(),
		strict: true,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.gen != nil {
		s.gen = generate.Checked(s.gen, diagram.WithStrictReferences(s.strict))
	}
	return s
}

// GetBoard reads a board from storage.
func (s *Service) GetBoard(_ context.Context, id string) (*BoardDetail, error) {
	_, b, cs, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return &BoardDetail{Board: *b, Checksum: cs}, nil
}

// ListBoards returns one page of the catalog and the total count.
func (s *Service) ListBoards(_ context.Context, limit, offset int) ([]board.Metadata, int, error) {
	rows, total, err := s.db.ListBoards(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]board.Metadata, len(rows))
	for i, r := range rows {
		items[i] = board.Metadata{
			ID:        r.ID,
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// CreateBoard writes a new board and indexes it.
func (s *Service) CreateBoard(ctx context.Context, in CreateInput) (*BoardDetail, *diagram.AST, error) {
	if in.ID == "" {
		in.ID = board.NewID()
	}
	if !ValidID(in.ID) {
		return nil, nil, fmt.Errorf("boardservice: invalid board id %q: %w", in.ID, apperr.ErrInvalid)
	}
	if in.Source == "" && in.Prompt != "" {
		src, err := s.Generate(ctx, in.Prompt, in.Kind)
		if err != nil {
			return nil, nil, err
		}
		in.Source = src
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, _, err := s.load(in.ID); err == nil {
		return nil, nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, err
	}

	now := s.now()
	b := &board.Board{
		ID:        in.ID,
		Title:     in.Title,
		Elements:  []board.Element{},
		Viewport:  board.DefaultViewport(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var ast *diagram.AST
	if in.Source != "" {
		elems, parsed, err := s.compile(in.Source, in.Kind, 0)
		if err != nil {
			return nil, parsed, err
		}
		ast = parsed
		b.Elements = elems
		if b.Title == "" {
			b.Title = ast.Title
		}
	}

	cs, err := s.write(storage.BoardPath(b.ID), b)
	if err != nil {
		return nil, ast, err
	}
	s.notify("created", b.ID)
	return &BoardDetail{Board: *b, Checksum: cs}, ast, nil
}

// SaveBoard applies p to a stored board with optimistic concurrency: a
// non-empty ifMatch must equal the stored checksum. Element changes are
// broadcast to the board's subscribers.
func (s *Service) SaveBoard(_ context.Context, id string, p board.Patch, ifMatch string) (*BoardDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, b, cs, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != cs {
		return nil, apperr.ErrConflict
	}
	if p.Empty() {
		return &BoardDetail{Board: *b, Checksum: cs}, nil
	}
	b.Apply(p, s.now())
	if cs, err = s.write(path, b); err != nil {
		return nil, err
	}
	s.notify("updated", id)
	if p.Elements != nil {
		s.publish(b)
	}
	return &BoardDetail{Board: *b, Checksum: cs}, nil
}

// ReplaceElements swaps the element list of a board. It serves inbound
// element-change events, which the transport broadcasts itself.
func (s *Service) ReplaceElements(_ context.Context, boardID string, elements []board.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, b, _, err := s.load(boardID)
	if err != nil {
		return err
	}
	if elements == nil {
		elements = []board.Element{}
	}
	b.Apply(board.Patch{Elements: &elements}, s.now())
	if _, err = s.write(path, b); err != nil {
		return err
	}
	s.notify("updated", boardID)
	return nil
}

// AppendDiagram compiles source and adds the elements above the existing
// ones.
func (s *Service) AppendDiagram(_ context.Context, id, source string, kind diagram.Kind) (*BoardDetail, *diagram.AST, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, b, _, err := s.load(id)
	if err != nil {
		return nil, nil, err
	}
	elems, ast, err := s.compile(source, kind, board.MaxZ(b.Elements)+1)
	if err != nil {
		return nil, ast, err
	}
	all := append(b.Elements, elems...)
	b.Apply(board.Patch{Elements: &all}, s.now())
	cs, err := s.write(path, b)
	if err != nil {
		return nil, ast, err
	}
	s.notify("updated", id)
	s.publish(b)
	return &BoardDetail{Board: *b, Checksum: cs}, ast, nil
}

// DeleteBoard removes a board from storage and index, and deletes the
// attachments no other board references.
func (s *Service) DeleteBoard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, b, _, err := s.load(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(path); err != nil {
		return err
	}
	if err := s.db.DeleteBoard(id); err != nil {
		return err
	}
	for _, src := range b.Images() {
		s.releaseAttachment(src)
	}
	s.notify("deleted", id)
	return nil
}

// RenameBoard moves a board to a new id. The file keeps its directory.
func (s *Service) RenameBoard(_ context.Context, id, newID string) (*BoardDetail, error) {
	if !ValidID(newID) {
		return nil, fmt.Errorf("boardservice: invalid board id %q: %w", newID, apperr.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, b, cs, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if newID == id {
		return &BoardDetail{Board: *b, Checksum: cs}, nil
	}
	if _, _, _, err := s.load(newID); err == nil {
		return nil, apperr.ErrAlreadyExists
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	newPath := filepath.ToSlash(filepath.Join(filepath.Dir(path), storage.BoardPath(newID)))
	if err := s.store.Move(path, newPath); err != nil {
		return nil, err
	}
	if err := s.db.DeleteBoard(id); err != nil {
		return nil, err
	}
	b.ID = newID
	b.UpdatedAt = s.now()
	if cs, err = s.write(newPath, b); err != nil {
		return nil, err
	}
	s.notify("deleted", id)
	s.notify("created", newID)
	return &BoardDetail{Board: *b, Checksum: cs}, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Validate checks diagram source with the configured reference strictness.
func (s *Service) Validate(text string, kind diagram.Kind) diagram.Result {
	return diagram.Validate(text, diagram.WithKind(kind), diagram.WithStrictReferences(s.strict))
}

// Parse parses and validates diagram source.
func (s *Service) Parse(text string, kind diagram.Kind) (*diagram.AST, error) {
	ast, err := diagram.ParseKind(text, kind)
	if err != nil {
		return nil, fmt.Errorf("boardservice: %w: %w", err, apperr.ErrInvalid)
	}
	if res := diagram.ValidateAST(ast, diagram.WithStrictReferences(s.strict)); !res.Valid {
		return ast, &DiagramError{Result: res}
	}
	return ast, nil
}

// Render compiles diagram source into elements without touching any board.
func (s *Service) Render(text string, kind diagram.Kind) ([]board.Element, *diagram.AST, error) {
	return s.compile(text, kind, 0)
}

// Generate asks the configured generator for diagram source. The output
// has already passed validation when it is returned.
func (s *Service) Generate(ctx context.Context, prompt string, kind diagram.Kind) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("boardservice: diagram generation is not configured: %w", apperr.ErrInvalid)
	}
	return s.gen.Generate(ctx, prompt, kind)
}

// Compiler returns the lenient compiler used for diagram source files.
func (s *Service) Compiler() index.DiagramCompiler {
	return func(text string) ([]board.Element, *diagram.AST, error) {
		return convert.New(ServerUser).Compile(text, s.layout)
	}
}

// FileChanged broadcasts board files edited outside the service. It has
// the shape of index.EventCallback.
func (s *Service) FileChanged(kind, id string, b *board.Board) {
	s.notify(kind, id)
	if b == nil {
		s.logger.Debug("board file removed", slog.String("board", id), slog.String("op", kind))
		return
	}
	s.publish(b)
}

// load resolves a board id to its file, reads and decodes it.
func (s *Service) load(id string) (string, *board.Board, string, error) {
	path := storage.BoardPath(id)
	if row, err := s.db.GetBoard(id); err == nil {
		path = row.Path
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, "", fmt.Errorf("boardservice: board %s: %w", id, apperr.ErrNotFound)
		}
		return "", nil, "", err
	}
	b, err := storage.DecodeBoard(data)
	if err != nil {
		return "", nil, "", err
	}
	b.ID = id
	return path, b, checksum.Sum(data), nil
}

// write stores and indexes b and returns the new checksum.
func (s *Service) write(path string, b *board.Board) (string, error) {
	data, err := storage.EncodeBoard(b)
	if err != nil {
		return "", err
	}
	if err := s.store.Write(path, data); err != nil {
		return "", err
	}
	if _, err := index.IndexBoard(s.db, path, data); err != nil {
		return "", err
	}
	return checksum.Sum(data), nil
}

// compile validates source and converts it into elements starting at baseZ.
func (s *Service) compile(source string, kind diagram.Kind, baseZ int) ([]board.Element, *diagram.AST, error) {
	ast, err := s.Parse(source, kind)
	if err != nil {
		return nil, ast, err
	}
	res, err := layout.Compute(ast, s.layout)
	if err != nil {
		return nil, ast, fmt.Errorf("boardservice: layout: %w", err)
	}
	conv := convert.New(ServerUser)
	conv.BaseZ = baseZ
	elems, err := conv.Convert(ast, res)
	if err != nil {
		return nil, ast, fmt.Errorf("boardservice: convert: %w", err)
	}
	return elems, ast, nil
}

func (s *Service) notify(kind, id string) {
	if s.catalog != nil {
		s.catalog(kind, id)
	}
}

func (s *Service) publish(b *board.Board) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(collab.ElementChange(b.ID, ServerUser, b.Elements))
}

// releaseAttachment deletes an uploaded image once no board uses it.
func (s *Service) releaseAttachment(src string) {
	name, ok := strings.CutPrefix(src, "/"+storage.AttachDir+"/")
	if !ok {
		return
	}
	users, err := s.db.ImageUsers(src)
	if err != nil || len(users) > 0 {
		return
	}
	path, err := storage.AttachmentPath(name)
	if err != nil {
		return
	}
	if err := s.store.Delete(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("attachment cleanup failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// IDPattern matches the board ids accepted for new boards.
var IDPattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]{0,127}$`)

// ValidID reports whether id can name a board file.
func ValidID(id string) bool { return IDPattern.MatchString(id) }
