// Package convert turns a laid-out diagram into board elements.
package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/layout"
)

// MarkerOffset is the distance between a node and the synthesized point
// standing in for a start/end marker.
const MarkerOffset = 40

// Ref prefixes.
const (
	RefNode     = "node:"
	RefEdge     = "edge:"
	RefLabel    = "label:"
	RefLifeline = "lifeline:"
)

const (
	labelCharWidth = 8
	labelHeight    = 20
	loopSize       = 30
)

// ErrNoLayout is returned when a node has no computed position.
var ErrNoLayout = errors.New("convert: node has no layout")

// Converter builds elements. The zero value is not usable; use New.
type Converter struct {
	CreatorID string
	Style     board.Style
	// BaseZ is the stacking order of the first element produced.
	BaseZ int
	NewID func() string
	Now   func() time.Time
}

// New returns a converter stamping elements with creatorID.
func New(creatorID string) *Converter {
	return &Converter{
		CreatorID: creatorID,
		Style:     board.DefaultStyle(),
		NewID:     board.NewID,
		Now:       time.Now,
	}
}

// Compile parses, lays out and converts text in one step.
func (c *Converter) Compile(text string, opts layout.Options) ([]board.Element, *diagram.AST, error) {
	ast, err := diagram.Parse(text)
	if err != nil {
		return nil, nil, err
	}
	res, err := layout.Compute(ast, opts)
	if err != nil {
		return nil, ast, err
	}
	elems, err := c.Convert(ast, res)
	return elems, ast, err
}

type emitter struct {
	c   *Converter
	now time.Time
	z   int
	out []board.Element
}

func (em *emitter) emit(e board.Element) {
	e.ID = em.c.NewID()
	e.CreatorID = em.c.CreatorID
	e.CreatedAt = em.now
	e.UpdatedAt = em.now
	e.Z = em.z
	em.z++
	em.out = append(em.out, e)
}

// Convert emits one element per node, one connector per connection, a
// text element per labelled connection and, for sequence diagrams, one
// lifeline per participant.
func (c *Converter) Convert(ast *diagram.AST, res *layout.Result) ([]board.Element, error) {
	if ast == nil || res == nil {
		return nil, errors.New("convert: nil diagram or layout")
	}
	for _, n := range ast.Nodes {
		if _, ok := res.Positions[n.ID]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrNoLayout, n.ID)
		}
	}

	em := &emitter{c: c, now: c.Now().UTC(), z: c.BaseZ}
	if ast.Kind == diagram.KindSequence {
		for _, l := range res.Lifelines {
			em.emit(c.lifeline(l))
		}
	}
	for _, n := range ast.Nodes {
		p, s, _ := res.Box(n.ID)
		em.emit(c.node(n, p, s))
	}

	for i, conn := range ast.Connections {
		var (
			e   board.Element
			err error
		)
		if ast.Kind == diagram.KindSequence {
			e, err = c.message(i, conn, res)
		} else {
			e, err = c.connector(conn, ast, res)
		}
		if err != nil {
			return nil, fmt.Errorf("convert: connection %d: %w", i+1, err)
		}
		e.Ref = fmt.Sprintf("%s%d", RefEdge, i+1)
		em.emit(e)

		if conn.Label != "" {
			em.emit(c.label(i, conn.Label, midpoint(e)))
		}
	}
	return em.out, nil
}

func (c *Converter) node(n diagram.Node, p layout.Position, s layout.Size) board.Element {
	lines := append([]string{n.Label}, n.Attributes...)
	lines = append(lines, n.Methods...)

	e := board.Element{
		Type:   board.TypeRectangle,
		X:      p.X,
		Y:      p.Y,
		Width:  s.Width,
		Height: s.Height,
		Text:   strings.Join(lines, "\n"),
		Style:  c.Style,
		Ref:    RefNode + n.ID,
	}
	switch n.Shape {
	case diagram.ShapeCircle:
		e.Type = board.TypeCircle
		e.X, e.Y = p.X+s.Width/2, p.Y+s.Height/2
		e.Radius = min(s.Width, s.Height) / 2
		e.Width, e.Height = 0, 0
	case diagram.ShapeDiamond:
		e.Type = board.TypeDiamond
	}
	return e
}

func (c *Converter) lifeline(l layout.Lifeline) board.Element {
	st := c.Style
	st.StrokeStyle = board.StrokeDashed
	st.StrokeWidth = max(1, st.StrokeWidth/2)
	return board.Element{
		Type:   board.TypeLine,
		X:      l.X,
		Y:      l.Top,
		Points: []board.Point{{X: 0, Y: 0}, {X: 0, Y: l.Bottom - l.Top}},
		Style:  st,
		Ref:    RefLifeline + l.ID,
	}
}

func (c *Converter) label(i int, text string, mid board.Point) board.Element {
	w := float64(utf8.RuneCountInString(text))*labelCharWidth + labelCharWidth
	return board.Element{
		Type:   board.TypeText,
		X:      mid.X - w/2,
		Y:      mid.Y - labelHeight/2,
		Width:  w,
		Height: labelHeight,
		Text:   text,
		Style:  c.Style,
		Ref:    fmt.Sprintf("%s%d", RefLabel, i+1),
	}
}

// connectorStyle applies the connection kind to the base style.
func (c *Converter) connectorStyle(kind diagram.ConnKind) board.Style {
	st := c.Style
	switch kind {
	case diagram.ConnDotted:
		st.Opacity *= 0.5
		st.StrokeStyle = board.StrokeDashed
	case diagram.ConnThick:
		st.StrokeWidth *= 2
	}
	return st
}

func connectorType(conn diagram.Connection) board.Type {
	if conn.Directed {
		return board.TypeArrow
	}
	return board.TypeLine
}

// polyline builds a connector element from absolute points.
func polyline(t board.Type, st board.Style, pts ...board.Point) board.Element {
	e := board.Element{Type: t, X: pts[0].X, Y: pts[0].Y, Style: st}
	for _, p := range pts {
		e.Points = append(e.Points, board.Point{X: p.X - e.X, Y: p.Y - e.Y})
	}
	return e
}

// midpoint returns the middle of a connector: the halfway point of its
// middle segment.
func midpoint(e board.Element) board.Point {
	n := len(e.Points)
	if n == 0 {
		return board.Point{X: e.X, Y: e.Y}
	}
	a, b := e.Points[(n-1)/2], e.Points[n/2]
	return board.Point{X: e.X + (a.X+b.X)/2, Y: e.Y + (a.Y+b.Y)/2}
}
