package boardservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/storage"
)

// AttachmentURL is the public URL of an uploaded attachment.
func AttachmentURL(name string) string { return "/" + storage.AttachDir + "/" + name }

// SaveAttachment stores an uploaded file under the attachments directory
// and returns its public URL. An existing file of the same name is
// replaced.
func (s *Service) SaveAttachment(name string, data []byte) (string, error) {
	path, err := storage.AttachmentPath(name)
	if err != nil {
		return "", fmt.Errorf("boardservice: %w: %w", err, apperr.ErrInvalid)
	}
	if err := s.store.Write(path, data); err != nil {
		return "", err
	}
	s.logger.Info("attachment saved", slog.String("path", path), slog.Int("size", len(data)))
	return AttachmentURL(name), nil
}

// ReadAttachment returns the bytes of an uploaded file.
func (s *Service) ReadAttachment(name string) ([]byte, error) {
	path, err := storage.AttachmentPath(name)
	if err != nil {
		return nil, fmt.Errorf("boardservice: %w: %w", err, apperr.ErrInvalid)
	}
	return s.store.Read(path)
}

// ImagePlacement positions an image element in world coordinates.
type ImagePlacement struct {
	X, Y          float64
	Width, Height float64
}

// AddImage places an image element referencing src above the existing
// elements of a board and broadcasts the change.
func (s *Service) AddImage(_ context.Context, id, src string, at ImagePlacement) (*BoardDetail, error) {
	if src == "" {
		return nil, fmt.Errorf("boardservice: image source is required: %w", apperr.ErrInvalid)
	}
	if at.Width <= 0 || at.Height <= 0 {
		at.Width, at.Height = 320, 240
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, b, _, err := s.load(id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	img := board.Element{
		ID:        board.NewID(),
		Type:      board.TypeImage,
		X:         at.X,
		Y:         at.Y,
		Width:     at.Width,
		Height:    at.Height,
		Src:       src,
		Style:     board.DefaultStyle(),
		Z:         board.MaxZ(b.Elements) + 1,
		CreatorID: ServerUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	all := append(b.Elements, img)
	b.Apply(board.Patch{Elements: &all}, now)
	cs, err := s.write(path, b)
	if err != nil {
		return nil, err
	}
	s.notify("updated", id)
	s.publish(b)
	return &BoardDetail{Board: *b, Checksum: cs}, nil
}
