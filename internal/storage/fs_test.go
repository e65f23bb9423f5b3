package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/board"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func writeBoard(t *testing.T, s *FS, path string, b *board.Board) {
	t.Helper()
	data, err := EncodeBoard(b)
	if err != nil {
		t.Fatalf("EncodeBoard: %v", err)
	}
	if err := s.Write(path, data); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("flowchart TD\nA-->B\n")
	if err := s.Write("flow.mmd", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("flow.mmd")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/c.mmd", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.mmd")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.board.json", []byte("{}"))
	if err := s.Delete("del.board.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.board.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("old.board.json", []byte("{}"))
	if err := s.Move("old.board.json", "sub/new.board.json"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := s.Read("sub/new.board.json"); err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if _, err := s.Read("old.board.json"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	writeBoard(t, s, BoardPath("b1"), &board.Board{ID: "b1", Title: "First"})
	writeBoard(t, s, "sub/"+BoardPath("b2"), &board.Board{ID: "b2", Title: "Second"})
	_ = s.Write("broken.board.json", []byte("{"))
	_ = s.Write("flow.mmd", []byte("flowchart TD\n"))
	_ = s.Write(filepath.Join(AttachDir, "x.board.json"), []byte("{}"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(items), items)
	}
	titles := map[string]string{}
	for _, m := range items {
		titles[m.ID] = m.Title
		if m.Checksum == "" {
			t.Errorf("%s: empty checksum", m.ID)
		}
	}
	if titles["b1"] != "First" || titles["b2"] != "Second" {
		t.Errorf("titles = %v", titles)
	}
	if title, ok := titles["broken"]; !ok || title != "" {
		t.Errorf("broken board = %q, %v", title, ok)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.board.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.board.json", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.board.json", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.board.json")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".raido-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/raido-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "raido-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestBoardPaths(t *testing.T) {
	if got := BoardPath("abc"); got != "abc.board.json" {
		t.Errorf("BoardPath = %q", got)
	}
	if id, ok := BoardID("sub/abc.board.json"); !ok || id != "abc" {
		t.Errorf("BoardID = %q, %v", id, ok)
	}
	if _, ok := BoardID("abc.json"); ok {
		t.Error("BoardID accepted a non-board file")
	}
	if _, ok := BoardID(".board.json"); ok {
		t.Error("BoardID accepted an empty id")
	}
	if got := DiagramBoardPath("notes/flow.mmd"); got != "notes/flow.board.json" {
		t.Errorf("DiagramBoardPath = %q", got)
	}
}

func TestAttachmentPath(t *testing.T) {
	got, err := AttachmentPath("cat.png")
	if err != nil || got != "attachments/cat.png" {
		t.Errorf("AttachmentPath = %q, %v", got, err)
	}
	for _, name := range []string{"", "..", "../x.png", "a/b.png", `a\b.png`} {
		if _, err := AttachmentPath(name); err == nil {
			t.Errorf("AttachmentPath(%q) accepted", name)
		}
	}
}

func TestDecodeBoardDefaultsZoom(t *testing.T) {
	b, err := DecodeBoard([]byte(`{"id":"b1","viewport":{"x":5,"y":0,"zoom":0}}`))
	if err != nil {
		t.Fatalf("DecodeBoard: %v", err)
	}
	if b.Viewport.Zoom != 1 || b.Viewport.X != 5 {
		t.Errorf("viewport = %+v", b.Viewport)
	}
	if _, err := DecodeBoard([]byte("nope")); err == nil {
		t.Error("expected decode error")
	}
}
