package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/storage"
)

// Sync walks the board directory and brings the index up to date:
//   - new/changed board files are decoded and upserted
//   - boards removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.ID] = struct{}{}

		if checksums[m.ID] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := IndexBoard(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteBoard(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("board", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("board", id))
			}
		}
	}

	return nil
}

// IndexBoard decodes the board file at path and upserts it. The board id
// always comes from the file name.
func IndexBoard(db *DB, path string, data []byte) (*board.Board, error) {
	id, ok := storage.BoardID(path)
	if !ok {
		return nil, fmt.Errorf("index: not a board file: %s", path)
	}
	b, err := storage.DecodeBoard(data)
	if err != nil {
		return nil, err
	}
	b.ID = id
	updated := b.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	row := BoardRow{
		ID:        id,
		Path:      path,
		Title:     b.Title,
		Checksum:  checksum.Sum(data),
		Elements:  len(b.Elements),
		UpdatedAt: updated,
	}
	if err := db.UpsertBoard(row, b.Text(), b.Images()); err != nil {
		return nil, err
	}
	return b, nil
}
