package layout

import (
	"context"
	"math"

	"github.com/starford/raido/internal/diagram"
)

// grid places nodes row-major in ceil(sqrt(n)) columns. Columns are as
// wide as their widest box and rows as tall as their tallest.
func grid(ctx context.Context, ast *diagram.AST, o Options) (*Result, error) {
	n := len(ast.Nodes)
	res := newResult(n)
	if n == 0 {
		return res, nil
	}

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	colW := make([]float64, cols)
	rowH := make([]float64, rows)
	for i, node := range ast.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := nodeSize(node, o)
		res.Sizes[node.ID] = s
		colW[i%cols] = max(colW[i%cols], s.Width)
		rowH[i/cols] = max(rowH[i/cols], s.Height)
	}

	colX := make([]float64, cols)
	for c := 1; c < cols; c++ {
		colX[c] = colX[c-1] + colW[c-1] + o.HorizontalSpacing
	}
	rowY := make([]float64, rows)
	for r := 1; r < rows; r++ {
		rowY[r] = rowY[r-1] + rowH[r-1] + o.VerticalSpacing
	}

	for i, node := range ast.Nodes {
		res.Positions[node.ID] = Position{
			X: o.Origin.X + colX[i%cols],
			Y: o.Origin.Y + rowY[i/cols],
		}
	}
	return res, nil
}
