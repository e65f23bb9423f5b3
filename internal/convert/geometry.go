package convert

import (
	"errors"
	"fmt"
	"math"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/layout"
)

var errMarkerOnly = errors.New("both endpoints are markers")

type box struct {
	shape diagram.Shape
	x, y  float64
	w, h  float64
}

func (b box) center() board.Point {
	return board.Point{X: b.x + b.w/2, Y: b.y + b.h/2}
}

// clip returns where the segment from the box center towards t leaves the
// box outline.
func (b box) clip(t board.Point) board.Point {
	c := b.center()
	dx, dy := t.X-c.X, t.Y-c.Y
	if dx == 0 && dy == 0 {
		return c
	}
	hw, hh := b.w/2, b.h/2

	var scale float64
	switch b.shape {
	case diagram.ShapeCircle:
		scale = min(hw, hh) / math.Hypot(dx, dy)
	case diagram.ShapeDiamond:
		scale = 1 / (math.Abs(dx)/hw + math.Abs(dy)/hh)
	default:
		sx, sy := math.Inf(1), math.Inf(1)
		if dx != 0 {
			sx = hw / math.Abs(dx)
		}
		if dy != 0 {
			sy = hh / math.Abs(dy)
		}
		scale = min(sx, sy)
	}
	scale = min(scale, 1)
	return board.Point{X: c.X + dx*scale, Y: c.Y + dy*scale}
}

// markerPoint places the stand-in for a marker MarkerOffset before (source)
// or after (target) b along the flow direction.
func (b box) markerPoint(dir diagram.Direction, source bool) board.Point {
	c := b.center()
	before := source
	if dir == diagram.DirectionBT || dir == diagram.DirectionRL {
		before = !before
	}
	switch dir {
	case diagram.DirectionLR, diagram.DirectionRL:
		if before {
			return board.Point{X: b.x - MarkerOffset, Y: c.Y}
		}
		return board.Point{X: b.x + b.w + MarkerOffset, Y: c.Y}
	default:
		if before {
			return board.Point{X: c.X, Y: b.y - MarkerOffset}
		}
		return board.Point{X: c.X, Y: b.y + b.h + MarkerOffset}
	}
}

func boxOf(res *layout.Result, ast *diagram.AST, id string) (box, bool) {
	p, s, ok := res.Box(id)
	if !ok {
		return box{}, false
	}
	b := box{x: p.X, y: p.Y, w: s.Width, h: s.Height}
	if n, ok := ast.Node(id); ok {
		b.shape = n.Shape
	}
	return b, true
}

// connector builds the line or arrow for a graph connection. Endpoints are
// clipped to the node outlines; self connections become a loop on the
// right-hand side of the node.
func (c *Converter) connector(conn diagram.Connection, ast *diagram.AST, res *layout.Result) (board.Element, error) {
	st := c.connectorStyle(conn.Kind)
	t := connectorType(conn)

	fromMarker, toMarker := diagram.IsMarker(conn.From), diagram.IsMarker(conn.To)
	if fromMarker && toMarker {
		return board.Element{}, errMarkerOnly
	}
	from, okFrom := boxOf(res, ast, conn.From)
	to, okTo := boxOf(res, ast, conn.To)
	if !fromMarker && !okFrom {
		return board.Element{}, fmt.Errorf("%w: %q", ErrNoLayout, conn.From)
	}
	if !toMarker && !okTo {
		return board.Element{}, fmt.Errorf("%w: %q", ErrNoLayout, conn.To)
	}

	switch {
	case fromMarker:
		start := to.markerPoint(ast.Direction, true)
		return polyline(t, st, start, to.clip(start)), nil
	case toMarker:
		end := from.markerPoint(ast.Direction, false)
		return polyline(t, st, from.clip(end), end), nil
	case conn.From == conn.To:
		right := from.x + from.w
		mid := from.center()
		top, bottom := mid.Y-from.h/4, mid.Y+from.h/4
		return polyline(t, st,
			board.Point{X: right, Y: top},
			board.Point{X: right + loopSize, Y: top},
			board.Point{X: right + loopSize, Y: bottom},
			board.Point{X: right, Y: bottom},
		), nil
	}
	return polyline(t, st, from.clip(to.center()), to.clip(from.center())), nil
}

// message builds the horizontal arrow of sequence message i between two
// lifelines. A message to self loops out to the right and back.
func (c *Converter) message(i int, conn diagram.Connection, res *layout.Result) (board.Element, error) {
	if i >= len(res.Messages) {
		return board.Element{}, fmt.Errorf("no message slot %d", i+1)
	}
	y := res.Messages[i]
	fromX, okFrom := lifelineX(res, conn.From)
	toX, okTo := lifelineX(res, conn.To)
	if !okFrom {
		return board.Element{}, fmt.Errorf("%w: %q", ErrNoLayout, conn.From)
	}
	if !okTo {
		return board.Element{}, fmt.Errorf("%w: %q", ErrNoLayout, conn.To)
	}

	st := c.connectorStyle(conn.Kind)
	t := connectorType(conn)
	if conn.From == conn.To {
		return polyline(t, st,
			board.Point{X: fromX, Y: y},
			board.Point{X: fromX + loopSize, Y: y},
			board.Point{X: fromX + loopSize, Y: y + loopSize/2},
			board.Point{X: fromX, Y: y + loopSize/2},
		), nil
	}
	return polyline(t, st, board.Point{X: fromX, Y: y}, board.Point{X: toX, Y: y}), nil
}

func lifelineX(res *layout.Result, id string) (float64, bool) {
	for _, l := range res.Lifelines {
		if l.ID == id {
			return l.X, true
		}
	}
	return 0, false
}
