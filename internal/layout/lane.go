package layout

import (
	"context"

	"github.com/starford/raido/internal/diagram"
)

// lanes places participants in one row and gives message k the slot
// NodeHeight + MessageSpacing*(k+1) below the origin. Every lifeline spans
// all slots plus one.
func lanes(ctx context.Context, ast *diagram.AST, o Options) (*Result, error) {
	res := newResult(len(ast.Nodes))

	top := o.Origin.Y + o.NodeHeight
	bottom := top + o.MessageSpacing*float64(len(ast.Connections)+1)

	x := o.Origin.X
	for _, node := range ast.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := nodeSize(node, o)
		s.Height = o.NodeHeight
		res.Sizes[node.ID] = s
		res.Positions[node.ID] = Position{X: x, Y: o.Origin.Y}
		res.Lifelines = append(res.Lifelines, Lifeline{
			ID:     node.ID,
			X:      x + s.Width/2,
			Top:    top,
			Bottom: bottom,
		})
		x += s.Width + o.HorizontalSpacing
	}

	res.Messages = make([]float64, len(ast.Connections))
	for k := range ast.Connections {
		res.Messages[k] = top + o.MessageSpacing*float64(k+1)
	}
	return res, nil
}
