package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted"; b is nil for deletions.
type EventCallback func(kind, id string, b *board.Board)

// Watch starts an fsnotify watcher on the board directory and processes
// file change events until ctx is cancelled. It calls cb (if non-nil)
// after each index mutation that changed a board's content.
//
// Diagram sources (.mmd) are compiled into their sibling board file when
// compile is non-nil; the resulting board write arrives as its own event.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, compile DiagramCompiler, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					indexNewDir(db, store, root, absPath, logger, cb)
					continue
				}
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			if strings.HasSuffix(absPath, storage.DiagramExt) {
				if compile != nil && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					compileSource(store, rel, compile, logger)
				}
				continue
			}

			id, isBoard := storage.BoardID(absPath)
			if !isBoard {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				reindex(db, store, rel, kind, logger, cb)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteBoard(id); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("board", id), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("board", id))
				if cb != nil {
					cb("deleted", id, nil)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a separate Create if it stays under the root.
				if delErr := db.DeleteBoard(id); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("board", id), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("board", id))
					if cb != nil {
						cb("deleted", id, nil)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reindex indexes the board file at rel unless its checksum is already
// current, which is the case for writes made through the board service.
func reindex(db *DB, store storage.Provider, rel, kind string, logger *slog.Logger, cb EventCallback) {
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	id, _ := storage.BoardID(rel)
	if cs, _ := db.GetChecksum(id); cs == checksum.Sum(data) {
		return
	}
	b, err := IndexBoard(db, rel, data)
	if err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	if cb != nil {
		cb(kind, id, b)
	}
}

func compileSource(store storage.Provider, rel string, compile DiagramCompiler, logger *slog.Logger) {
	src, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read diagram failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	target, err := CompileDiagram(store, rel, src, compile)
	if err != nil {
		logger.Warn("watcher: compile failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: compiled diagram", slog.String("path", rel), slog.String("board", target))
}

// reconcileAfterRename does a lightweight sync using batch lookups:
// finds index entries without a corresponding file on disk and removes them,
// and finds on-disk boards that are not indexed and indexes them.
func reconcileAfterRename(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]board.Metadata, len(metas))
	for _, m := range metas {
		disk[m.ID] = m
	}

	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if delErr := db.DeleteBoard(id); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("board", id))
				if cb != nil {
					cb("deleted", id, nil)
				}
			}
		}
	}

	for id, m := range disk {
		if checksums[id] == m.Checksum {
			continue
		}
		data, readErr := store.Read(m.Path)
		if readErr != nil {
			continue
		}
		if b, idxErr := IndexBoard(db, m.Path, data); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("path", m.Path))
			if cb != nil {
				cb("created", id, b)
			}
		}
	}
}

// indexNewDir indexes any board files found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, root, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if _, ok := storage.BoardID(path); !ok {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		reindex(db, store, rel, "created", logger, cb)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
