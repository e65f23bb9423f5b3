package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/board"
)

const (
	// BoardExt is the file suffix of persisted boards.
	BoardExt = ".board.json"
	// DiagramExt is the file suffix of diagram sources compiled into boards.
	DiagramExt = ".mmd"
	// AttachDir holds uploaded image files.
	AttachDir = "attachments"
)

// BoardPath returns the root-relative path of the board with the given id.
func BoardPath(id string) string { return id + BoardExt }

// BoardID returns the board id encoded in a board file path.
func BoardID(p string) (string, bool) {
	name := filepath.Base(p)
	if !strings.HasSuffix(name, BoardExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, BoardExt)
	return id, id != ""
}

// DiagramBoardPath returns the board file that a diagram source compiles
// into: notes/flow.mmd becomes notes/flow.board.json.
func DiagramBoardPath(p string) string {
	return strings.TrimSuffix(p, DiagramExt) + BoardExt
}

// AttachmentPath returns the root-relative path of an attachment. name
// must be a plain file name.
func AttachmentPath(name string) (string, error) {
	if name == "" {
		return "", errors.New("storage: attachment name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("storage: invalid attachment name: %s", name)
	}
	return path.Join(AttachDir, name), nil
}

// EncodeBoard returns the on-disk form of b.
func EncodeBoard(b *board.Board) ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage: encode board %s: %w", b.ID, err)
	}
	return append(data, '\n'), nil
}

// DecodeBoard parses a board file.
func DecodeBoard(data []byte) (*board.Board, error) {
	var b board.Board
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("storage: decode board: %w", err)
	}
	if b.Viewport.Zoom <= 0 {
		b.Viewport.Zoom = 1
	}
	return &b, nil
}
