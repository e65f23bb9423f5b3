package index

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/storage"
)

// DiagramCompiler turns diagram source text into board elements.
type DiagramCompiler func(text string) ([]board.Element, *diagram.AST, error)

// CompileDiagram compiles the diagram source at rel into its sibling board
// file and returns that file's path. An existing sibling keeps its id,
// viewport and creation time; only its elements and title are replaced.
func CompileDiagram(store storage.Provider, rel string, src []byte, compile DiagramCompiler) (string, error) {
	target := storage.DiagramBoardPath(rel)
	id, _ := storage.BoardID(target)

	elems, ast, err := compile(string(src))
	if err != nil {
		return "", fmt.Errorf("index: compile %s: %w", rel, err)
	}

	now := time.Now().UTC()
	b := &board.Board{ID: id, Viewport: board.DefaultViewport(), CreatedAt: now}
	if data, err := store.Read(target); err == nil {
		if existing, err := storage.DecodeBoard(data); err == nil {
			b = existing
			b.ID = id
		}
	}
	title := b.Title
	if ast != nil && ast.Title != "" {
		title = ast.Title
	}
	if title == "" {
		title = id
	}
	b.Apply(board.Patch{Title: &title, Elements: &elems}, now)

	data, err := storage.EncodeBoard(b)
	if err != nil {
		return "", err
	}
	if err := store.Write(target, data); err != nil {
		return "", err
	}
	return target, nil
}

// CompileDiagrams compiles every diagram source under root that has no
// sibling board yet.
func CompileDiagrams(store storage.Provider, root string, compile DiagramCompiler, logger *slog.Logger) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, storage.DiagramExt) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if _, err := store.Read(storage.DiagramBoardPath(rel)); err == nil {
			return nil
		}
		src, err := store.Read(rel)
		if err != nil {
			return nil
		}
		if _, err := CompileDiagram(store, rel, src, compile); err != nil {
			logger.Warn("diagrams: compile failed", slog.String("path", rel), slog.String("error", err.Error()))
			return nil
		}
		logger.Debug("diagrams: compiled", slog.String("path", rel))
		return nil
	})
}
