// Package storage defines the board directory abstraction. Boards are
// stored as <id>.board.json files under the root; diagram sources (.mmd)
// and attachments live alongside them as raw files.
package storage

import "github.com/starford/raido/internal/board"

// Provider is the interface for board directory file operations.
type Provider interface {
	// List returns metadata for every board file under dir (relative to root).
	List(dir string) ([]board.Metadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to root).
	Move(oldPath, newPath string) error
}
