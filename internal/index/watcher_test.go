package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/convert"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/layout"
	"github.com/starford/raido/internal/storage"
)

// watcherTestEnv sets up a board dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func compiler() DiagramCompiler {
	return func(text string) ([]board.Element, *diagram.AST, error) {
		return convert.New("watcher").Compile(text, layout.DefaultOptions())
	}
}

func boardFile(t *testing.T, b *board.Board) []byte {
	t.Helper()
	data, err := storage.EncodeBoard(b)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSyncIndexesAndRemovesStale(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(root, "a.board.json"), boardFile(t, &board.Board{Title: "Alpha"}), 0o644)
	_ = db.UpsertBoard(row("stale", "", "s", time.Now()), "", nil)

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	got, err := db.GetBoard("a")
	if err != nil {
		t.Fatalf("GetBoard: %v", err)
	}
	if got.Title != "Alpha" {
		t.Errorf("title = %q", got.Title)
	}
	if cs, _ := db.GetChecksum("stale"); cs != "" {
		t.Error("stale board not removed")
	}
}

func TestIndexBoardUsesFileName(t *testing.T) {
	db := testDB(t)
	data := boardFile(t, &board.Board{ID: "other", Title: "T", Elements: []board.Element{
		{ID: "e1", Type: board.TypeText, Text: "hello"},
		{ID: "e2", Type: board.TypeImage, Src: "/attachments/p.png"},
	}})
	b, err := IndexBoard(db, "sub/real.board.json", data)
	if err != nil {
		t.Fatalf("IndexBoard: %v", err)
	}
	if b.ID != "real" {
		t.Errorf("id = %q, want real", b.ID)
	}
	r, _ := db.GetBoard("real")
	if r == nil || r.Elements != 2 || r.Path != "sub/real.board.json" {
		t.Errorf("row = %+v", r)
	}
	if users, _ := db.ImageUsers("/attachments/p.png"); len(users) != 1 {
		t.Errorf("image users = %v", users)
	}
	if _, err := IndexBoard(db, "notes.txt", data); err == nil {
		t.Error("expected error for non-board path")
	}
}

func TestCompileDiagramKeepsBoardIdentity(t *testing.T) {
	_, store, _ := watcherTestEnv(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &board.Board{ID: "flow", Title: "Mine", Viewport: board.Viewport{X: 10, Zoom: 2}, CreatedAt: created, Version: 3}
	_ = store.Write("flow.board.json", boardFile(t, existing))

	target, err := CompileDiagram(store, "flow.mmd", []byte("flowchart TD\nA-->B\n"), compiler())
	if err != nil {
		t.Fatalf("CompileDiagram: %v", err)
	}
	if target != "flow.board.json" {
		t.Errorf("target = %q", target)
	}
	data, _ := store.Read(target)
	b, err := storage.DecodeBoard(data)
	if err != nil {
		t.Fatal(err)
	}
	if b.Title != "Mine" || b.Viewport.X != 10 || !b.CreatedAt.Equal(created) || b.Version != 4 {
		t.Errorf("board identity lost: %+v", b)
	}
	if len(b.Elements) != 3 {
		t.Errorf("elements = %d, want 3", len(b.Elements))
	}
}

func TestCompileDiagramsSkipsCompiled(t *testing.T) {
	root, store, _ := watcherTestEnv(t)
	_ = store.Write("new.mmd", []byte("---\ntitle: Fresh\n---\nflowchart LR\nA-->B\n"))
	_ = store.Write("done.mmd", []byte("flowchart LR\nA-->B\n"))
	_ = store.Write("done.board.json", boardFile(t, &board.Board{ID: "done", Title: "Kept"}))

	if err := CompileDiagrams(store, root, compiler(), quietLogger()); err != nil {
		t.Fatalf("CompileDiagrams: %v", err)
	}
	data, err := store.Read("new.board.json")
	if err != nil {
		t.Fatalf("new board not written: %v", err)
	}
	b, _ := storage.DecodeBoard(data)
	if b.Title != "Fresh" || len(b.Elements) != 3 {
		t.Errorf("compiled board = %q with %d elements", b.Title, len(b.Elements))
	}
	data, _ = store.Read("done.board.json")
	if b, _ := storage.DecodeBoard(data); len(b.Elements) != 0 {
		t.Error("already compiled diagram was recompiled")
	}
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, db, store, root, quietLogger(), nil, func(kind, id string, b *board.Board) {
		mu.Lock()
		events = append(events, id)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "new.board.json"), boardFile(t, &board.Board{Title: "New"}), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new")
		return cs != ""
	}, "new board not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "new" {
				return true
			}
		}
		return false
	}, "expected callback for new")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), nil, nil)

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(root, "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.board.json"), boardFile(t, &board.Board{Title: "Deep"}), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("deep")
		return cs != ""
	}, "board in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(root, "del.board.json"), boardFile(t, &board.Board{}), 0o644)
	Sync(db, store, logger)

	cs, _ := db.GetChecksum("del")
	if cs == "" {
		t.Fatal("precondition: board should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "del.board.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del")
		return cs == ""
	}, "deleted board still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(root, "old.board.json"), boardFile(t, &board.Board{Title: "Rename"}), 0o644)
	Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, logger, nil, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "old.board.json"), filepath.Join(root, "renamed.board.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old")
		newCS, _ := db.GetChecksum("renamed")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old board should be removed and new board indexed")
}

func TestWatcher_DiagramCompiled(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), compiler(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "arch.mmd"), []byte("flowchart TD\nA-->B\nB-->C\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		r, err := db.GetBoard("arch")
		return err == nil && r.Elements == 5
	}, "diagram source not compiled into an indexed board")
}
