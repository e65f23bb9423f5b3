// Package board defines the board, element and viewport types shared by
// the editor core, the converter and the service layer.
package board

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Type is the geometric kind of an element.
type Type string

const (
	TypeRectangle Type = "rectangle"
	TypeCircle    Type = "circle"
	TypeDiamond   Type = "diamond"
	TypeLine      Type = "line"
	TypeArrow     Type = "arrow"
	TypeText      Type = "text"
	TypeFreehand  Type = "freehand"
	TypeImage     Type = "image"
)

// Types lists every element type.
func Types() []Type {
	return []Type{TypeRectangle, TypeCircle, TypeDiamond, TypeLine, TypeArrow, TypeText, TypeFreehand, TypeImage}
}

// Valid reports whether t is a known element type.
func (t Type) Valid() bool {
	return slices.Contains(Types(), t)
}

// Point is a 2D coordinate. Element points are relative to the element's
// X/Y; cursor points are in world coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke styles.
const (
	StrokeSolid  = "solid"
	StrokeDashed = "dashed"
	StrokeDotted = "dotted"
)

// Style holds the visual attributes of an element.
type Style struct {
	Stroke      string  `json:"stroke"`
	Fill        string  `json:"fill"`
	StrokeWidth float64 `json:"stroke_width"`
	Opacity     float64 `json:"opacity"`
	FillStyle   string  `json:"fill_style"` // "solid", "hachure" or "none"
	StrokeStyle string  `json:"stroke_style,omitempty"`
	FontSize    float64 `json:"font_size,omitempty"`
}

// DefaultStyle is applied to new elements.
func DefaultStyle() Style {
	return Style{
		Stroke:      "#1e1e1e",
		Fill:        "transparent",
		StrokeWidth: 2,
		Opacity:     1,
		FillStyle:   "none",
		StrokeStyle: StrokeSolid,
	}
}

// Element is a geometric entity on a board.
type Element struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Width     float64   `json:"width,omitempty"`
	Height    float64   `json:"height,omitempty"`
	Radius    float64   `json:"radius,omitempty"`
	Points    []Point   `json:"points,omitempty"`
	Text      string    `json:"text,omitempty"`
	Src       string    `json:"src,omitempty"`
	Style     Style     `json:"style"`
	Z         int       `json:"z"`
	Locked    bool      `json:"locked,omitempty"`
	GroupID   string    `json:"group_id,omitempty"`
	CreatorID string    `json:"creator_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Ref names the diagram node or edge the element was compiled from.
	Ref string `json:"ref,omitempty"`
}

// NewID returns a fresh element id.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	c := *e
	c.Points = slices.Clone(e.Points)
	return &c
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether p lies in r, inclusive of the border.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Bounds returns the bounding box of e in world coordinates.
func (e *Element) Bounds() Rect {
	switch {
	case e.Type == TypeCircle:
		return Rect{X: e.X - e.Radius, Y: e.Y - e.Radius, Width: 2 * e.Radius, Height: 2 * e.Radius}
	case len(e.Points) > 0:
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, p := range e.Points {
			minX, minY = min(minX, p.X), min(minY, p.Y)
			maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
		}
		return Rect{X: e.X + minX, Y: e.Y + minY, Width: maxX - minX, Height: maxY - minY}
	}
	return Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

// HitTolerance is the distance in world units within which a line or
// freehand stroke counts as hit.
const HitTolerance = 6

// Hit reports whether p touches e.
func (e *Element) Hit(p Point) bool {
	switch e.Type {
	case TypeCircle:
		return math.Hypot(p.X-e.X, p.Y-e.Y) <= e.Radius+HitTolerance/2
	case TypeLine, TypeArrow, TypeFreehand:
		for i := 1; i < len(e.Points); i++ {
			a := Point{e.X + e.Points[i-1].X, e.Y + e.Points[i-1].Y}
			b := Point{e.X + e.Points[i].X, e.Y + e.Points[i].Y}
			if segmentDistance(p, a, b) <= HitTolerance {
				return true
			}
		}
		return false
	}
	return e.Bounds().Contains(p)
}

func segmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = max(0, min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// TopmostAt returns the element with the highest Z hit by p. Later
// elements win ties.
func TopmostAt(elements []Element, p Point) (*Element, bool) {
	var hit *Element
	for i := range elements {
		e := &elements[i]
		if e.Hit(p) && (hit == nil || e.Z >= hit.Z) {
			hit = e
		}
	}
	return hit, hit != nil
}

// MaxZ returns the highest stacking order in elements, or -1.
func MaxZ(elements []Element) int {
	z := -1
	for _, e := range elements {
		z = max(z, e.Z)
	}
	return z
}
