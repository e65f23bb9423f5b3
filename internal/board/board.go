package board

import "time"

// Board is the persisted record of a canvas.
type Board struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Elements  []Element `json:"elements"`
	Viewport  Viewport  `json:"viewport"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata is the lightweight form returned by list operations.
type Metadata struct {
	ID        string    `json:"id"`
	Path      string    `json:"path,omitempty"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch updates selected fields of a board. Nil fields are left alone.
type Patch struct {
	Title    *string    `json:"title,omitempty"`
	Elements *[]Element `json:"elements,omitempty"`
	Viewport *Viewport  `json:"viewport,omitempty"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Elements == nil && p.Viewport == nil
}

// Apply writes p onto b and bumps the version.
func (b *Board) Apply(p Patch, now time.Time) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Elements != nil {
		b.Elements = *p.Elements
	}
	if p.Viewport != nil {
		b.Viewport = *p.Viewport
	}
	b.Version++
	b.UpdatedAt = now
}

// Element returns the element with the given id.
func (b *Board) Element(id string) (*Element, bool) {
	for i := range b.Elements {
		if b.Elements[i].ID == id {
			return &b.Elements[i], true
		}
	}
	return nil, false
}

// Images returns the Src of every image element in order.
func (b *Board) Images() []string {
	var out []string
	for _, e := range b.Elements {
		if e.Type == TypeImage && e.Src != "" {
			out = append(out, e.Src)
		}
	}
	return out
}

// Text returns the searchable text of the board: the title followed by
// every non-empty element text, one per line.
func (b *Board) Text() string {
	s := b.Title
	for _, e := range b.Elements {
		if e.Text != "" {
			s += "\n" + e.Text
		}
	}
	return s
}
