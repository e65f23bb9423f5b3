package layout

import (
	"context"

	"github.com/starford/raido/internal/diagram"
)

// levels assigns each node its breadth-first distance from a root. Roots
// are nodes without incoming edges plus targets of the start marker.
// Nodes only reachable from a cycle are seeded from their first member.
func levels(ast *diagram.AST) []int {
	idx := ast.NodeIndex()
	n := len(ast.Nodes)
	out := make([][]int, n)
	indeg := make([]int, n)
	start := make([]bool, n)

	for _, c := range ast.Connections {
		to, okTo := idx[c.To]
		if diagram.IsMarker(c.From) && okTo {
			start[to] = true
			continue
		}
		from, okFrom := idx[c.From]
		if !okFrom || !okTo || from == to {
			continue
		}
		out[from] = append(out[from], to)
		indeg[to]++
	}

	level := make([]int, n)
	for i := range level {
		level[i] = -1
	}
	var queue []int
	bfs := func() {
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range out[cur] {
				if level[next] < 0 {
					level[next] = level[cur] + 1
					queue = append(queue, next)
				}
			}
		}
	}

	for i := range n {
		if indeg[i] == 0 || start[i] {
			level[i] = 0
			queue = append(queue, i)
		}
	}
	bfs()
	for i := range n {
		if level[i] < 0 {
			level[i] = 0
			queue = append(queue, i)
			bfs()
		}
	}
	return level
}

func leveled(ctx context.Context, ast *diagram.AST, o Options) (*Result, error) {
	res := newResult(len(ast.Nodes))
	res.Levels = make(map[string]int, len(ast.Nodes))

	lv := levels(ast)
	var rows [][]int
	for i, node := range ast.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for len(rows) <= lv[i] {
			rows = append(rows, nil)
		}
		rows[lv[i]] = append(rows[lv[i]], i)
		res.Levels[node.ID] = lv[i]
		res.Sizes[node.ID] = nodeSize(node, o)
	}

	// Rows run along the cross axis and stack along the main axis. For TB
	// the main axis is y; for LR it is x.
	horizontal := ast.Direction == diagram.DirectionLR || ast.Direction == diagram.DirectionRL
	mainOf := func(s Size) float64 {
		if horizontal {
			return s.Width
		}
		return s.Height
	}
	crossOf := func(s Size) float64 {
		if horizontal {
			return s.Height
		}
		return s.Width
	}
	levelGap, siblingGap := o.VerticalSpacing, o.HorizontalSpacing
	if horizontal {
		levelGap, siblingGap = o.HorizontalSpacing, o.VerticalSpacing
	}

	rowCross := make([]float64, len(rows))
	rowMain := make([]float64, len(rows))
	widest := 0.0
	for r, row := range rows {
		for k, i := range row {
			s := res.Sizes[ast.Nodes[i].ID]
			rowCross[r] += crossOf(s)
			if k > 0 {
				rowCross[r] += siblingGap
			}
			rowMain[r] = max(rowMain[r], mainOf(s))
		}
		widest = max(widest, rowCross[r])
	}

	total := 0.0
	for r := range rows {
		total += rowMain[r]
		if r > 0 {
			total += levelGap
		}
	}

	mainPos := 0.0
	for r, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cross := (widest - rowCross[r]) / 2
		for _, i := range row {
			id := ast.Nodes[i].ID
			s := res.Sizes[id]
			m := mainPos + (rowMain[r]-mainOf(s))/2
			if ast.Direction == diagram.DirectionBT || ast.Direction == diagram.DirectionRL {
				m = total - m - mainOf(s)
			}
			if horizontal {
				res.Positions[id] = Position{X: o.Origin.X + m, Y: o.Origin.Y + cross}
			} else {
				res.Positions[id] = Position{X: o.Origin.X + cross, Y: o.Origin.Y + m}
			}
			cross += crossOf(s) + siblingGap
		}
		mainPos += rowMain[r] + levelGap
	}
	return res, nil
}
