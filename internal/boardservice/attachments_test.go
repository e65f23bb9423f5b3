package boardservice

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/board"
)

func TestSaveAndReadAttachment(t *testing.T) {
	svc, store, _ := newTestService(t)

	url, err := svc.SaveAttachment("logo.png", []byte("png"))
	if err != nil {
		t.Fatalf("SaveAttachment: %v", err)
	}
	if url != "/attachments/logo.png" {
		t.Errorf("url = %q", url)
	}
	if data, err := store.Read("attachments/logo.png"); err != nil || string(data) != "png" {
		t.Errorf("stored = %q, %v", data, err)
	}
	if data, err := svc.ReadAttachment("logo.png"); err != nil || string(data) != "png" {
		t.Errorf("ReadAttachment = %q, %v", data, err)
	}

	for _, name := range []string{"", "../x.png", "a/b.png", ".."} {
		if _, err := svc.SaveAttachment(name, []byte("x")); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("SaveAttachment(%q) err = %v, want ErrInvalid", name, err)
		}
	}
}

func TestAddImage(t *testing.T) {
	svc, _, broker := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.CreateBoard(ctx, CreateInput{ID: "b1", Source: flow}); err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}

	b, err := svc.AddImage(ctx, "b1", "/attachments/logo.png", ImagePlacement{X: 10, Y: 20})
	if err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if len(b.Elements) != 4 {
		t.Fatalf("elements = %d, want 4", len(b.Elements))
	}
	img := b.Elements[3]
	if img.Type != board.TypeImage || img.Src != "/attachments/logo.png" || img.Width != 320 || img.Height != 240 {
		t.Errorf("image = %+v", img)
	}
	if img.Z != board.MaxZ(b.Elements[:3])+1 {
		t.Errorf("image z = %d", img.Z)
	}
	if got := b.Images(); len(got) != 1 || got[0] != "/attachments/logo.png" {
		t.Errorf("Images() = %v", got)
	}
	if evs := broker.published(); len(evs) == 0 || len(evs[len(evs)-1].Elements) != 4 {
		t.Errorf("published = %+v", evs)
	}

	if _, err := svc.AddImage(ctx, "b1", "", ImagePlacement{}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("empty src err = %v", err)
	}
	if _, err := svc.AddImage(ctx, "missing", "/x.png", ImagePlacement{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing board err = %v", err)
	}
}
