package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/raido/internal/apperr"
)

// BoardRow represents a row in the boards table.
type BoardRow struct {
	ID        string
	Path      string
	Title     string
	Checksum  string
	Elements  int
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string
	Title   string
	Snippet string
}

// UpsertBoard inserts or replaces a board, its FTS entry, and its image
// references within a transaction.
func (db *DB) UpsertBoard(r BoardRow, body string, images []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO boards (id, path, title, checksum, elements, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path       = excluded.path,
			title      = excluded.title,
			checksum   = excluded.checksum,
			elements   = excluded.elements,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, r.ID, r.Path, r.Title, r.Checksum, r.Elements, body, r.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert board: %w", err)
	}

	if err := ftsUpsert(tx, r.ID, r.Title, body); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM board_images WHERE board_id = ?`, r.ID); err != nil {
		return fmt.Errorf("index: clear images: %w", err)
	}
	if len(images) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO board_images (board_id, src) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare image insert: %w", err)
		}
		defer stmt.Close()
		for _, src := range images {
			if _, err := stmt.Exec(r.ID, src); err != nil {
				return fmt.Errorf("index: insert image: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteBoard removes a board, its FTS entry, and its image references.
func (db *DB) DeleteBoard(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM board_images WHERE board_id = ?`, id); err != nil {
		return fmt.Errorf("index: delete images: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM boards WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete board: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a board, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM boards WHERE id = ?`, id).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetBoard returns the catalog row of one board.
func (db *DB) GetBoard(id string) (*BoardRow, error) {
	var r BoardRow
	err := db.conn.QueryRow(`
		SELECT id, path, title, checksum, elements, updated_at
		FROM boards WHERE id = ?
	`, id).Scan(&r.ID, &r.Path, &r.Title, &r.Checksum, &r.Elements, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: board %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get board: %w", err)
	}
	return &r, nil
}

// ListBoards returns one page of boards, most recently updated first, and
// the total count. A non-positive limit defaults to 50.
func (db *DB) ListBoards(limit, offset int) ([]BoardRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM boards`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count boards: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT id, path, title, checksum, elements, updated_at
		FROM boards
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list boards: %w", err)
	}
	defer rows.Close()

	var out []BoardRow
	for rows.Next() {
		var r BoardRow
		if err := rows.Scan(&r.ID, &r.Path, &r.Title, &r.Checksum, &r.Elements, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// ImageUsers returns the ids of every board with an image element whose
// source is src.
func (db *DB) ImageUsers(src string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT board_id FROM board_images WHERE src = ? ORDER BY board_id`, src)
	if err != nil {
		return nil, fmt.Errorf("index: image users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AllChecksums returns the stored checksum of every indexed board by id.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM boards`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
