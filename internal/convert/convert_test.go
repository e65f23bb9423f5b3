package convert

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/layout"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConverter() *Converter {
	c := New("user-1")
	n := 0
	c.NewID = func() string {
		n++
		return fmt.Sprintf("el-%d", n)
	}
	c.Now = func() time.Time { return fixedNow }
	return c
}

func compile(t *testing.T, text string) ([]board.Element, *diagram.AST) {
	t.Helper()
	elems, ast, err := testConverter().Compile(text, layout.DefaultOptions())
	require.NoError(t, err)
	return elems, ast
}

func byRef(elems []board.Element, ref string) (board.Element, bool) {
	for _, e := range elems {
		if e.Ref == ref {
			return e, true
		}
	}
	return board.Element{}, false
}

func countPrefix(elems []board.Element, prefix string) int {
	n := 0
	for _, e := range elems {
		if strings.HasPrefix(e.Ref, prefix) {
			n++
		}
	}
	return n
}

func TestConvertFlowchartScenario(t *testing.T) {
	elems, ast := compile(t, "flowchart TD\nA[Start] --> B{Decision}\nB -->|Yes| C[End]")
	require.Len(t, elems, 6)
	assert.Equal(t, len(ast.Nodes), countPrefix(elems, RefNode))
	assert.Equal(t, len(ast.Connections), countPrefix(elems, RefEdge))

	a, _ := byRef(elems, "node:A")
	assert.Equal(t, board.TypeRectangle, a.Type)
	assert.Equal(t, "Start", a.Text)
	b, _ := byRef(elems, "node:B")
	assert.Equal(t, board.TypeDiamond, b.Type)

	edge, ok := byRef(elems, "edge:1")
	require.True(t, ok)
	assert.Equal(t, board.TypeArrow, edge.Type)
	// Clipped from the bottom of A (y=60) to the top of B (y=140).
	assert.Equal(t, 70.0, edge.X)
	assert.InDelta(t, 60.0, edge.Y, 1e-9)
	require.Len(t, edge.Points, 2)
	assert.InDelta(t, 80.0, edge.Points[1].Y, 1e-9)

	label, ok := byRef(elems, "label:2")
	require.True(t, ok)
	assert.Equal(t, board.TypeText, label.Type)
	assert.Equal(t, "Yes", label.Text)
	// Centered on the midpoint of edge 2, (70, 240).
	assert.InDelta(t, 240.0, label.Y+label.Height/2, 1e-9)
	assert.InDelta(t, 70.0, label.X+label.Width/2, 1e-9)
}

func TestConvertMetadata(t *testing.T) {
	elems, _ := compile(t, "flowchart LR\nA --> B")
	seen := map[string]bool{}
	for i, e := range elems {
		assert.False(t, seen[e.ID], "duplicate id %s", e.ID)
		seen[e.ID] = true
		assert.Equal(t, "user-1", e.CreatorID)
		assert.Equal(t, fixedNow, e.CreatedAt)
		assert.Equal(t, fixedNow, e.UpdatedAt)
		assert.Equal(t, i, e.Z)
	}

	c := New("u")
	c.BaseZ = 10
	out, _, err := c.Compile("flowchart LR\nA --> B", layout.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 10, out[0].Z)
	assert.NotEmpty(t, out[0].ID)
}

func TestConvertCountsAcrossGrammars(t *testing.T) {
	texts := []string{
		"flowchart TD\nA --> B & C\nC -.-> D\nD ==> A\nD --> D",
		"stateDiagram-v2\n[*] --> Idle\nIdle --> Run : go\nRun --> [*]",
		"sequenceDiagram\nAlice->>Bob: Hi\nBob-->>Alice: Hello\nBob->>Bob: think",
		"classDiagram\nAnimal <|-- Duck\nDuck : +swim()\nDuck --> Pond",
		"erDiagram\nCUSTOMER ||--o{ ORDER : places\nORDER ||--|{ ITEM : has",
	}
	for _, text := range texts {
		elems, ast := compile(t, text)
		assert.Equal(t, len(ast.Nodes), countPrefix(elems, RefNode), text)
		assert.Equal(t, len(ast.Connections), countPrefix(elems, RefEdge), text)

		labels := 0
		for _, c := range ast.Connections {
			if c.Label != "" {
				labels++
			}
		}
		assert.Equal(t, labels, countPrefix(elems, RefLabel), text)
		if ast.Kind == diagram.KindSequence {
			assert.Equal(t, len(ast.Nodes), countPrefix(elems, RefLifeline))
		} else {
			assert.Zero(t, countPrefix(elems, RefLifeline))
		}
	}
}

func TestConvertConnectionStyles(t *testing.T) {
	elems, _ := compile(t, "flowchart TD\nA --> B\nA -.- C\nA ==> D")
	solid, _ := byRef(elems, "edge:1")
	dotted, _ := byRef(elems, "edge:2")
	thick, _ := byRef(elems, "edge:3")

	assert.Equal(t, 1.0, solid.Style.Opacity)
	assert.Equal(t, board.StrokeSolid, solid.Style.StrokeStyle)

	assert.Equal(t, board.TypeLine, dotted.Type)
	assert.Equal(t, 0.5, dotted.Style.Opacity)
	assert.Equal(t, board.StrokeDashed, dotted.Style.StrokeStyle)

	assert.Equal(t, board.TypeArrow, thick.Type)
	assert.Equal(t, 2*solid.Style.StrokeWidth, thick.Style.StrokeWidth)
}

func TestConvertMarkers(t *testing.T) {
	elems, _ := compile(t, "stateDiagram-v2\n[*] --> Idle\nIdle --> [*]")
	start, _ := byRef(elems, "edge:1")
	end, _ := byRef(elems, "edge:2")

	require.Len(t, start.Points, 2)
	assert.Equal(t, 70.0, start.X)
	assert.Equal(t, -float64(MarkerOffset), start.Y)
	assert.InDelta(t, MarkerOffset, start.Points[1].Y, 1e-9)

	require.Len(t, end.Points, 2)
	assert.InDelta(t, 60.0, end.Y, 1e-9)
	assert.InDelta(t, MarkerOffset, end.Points[1].Y, 1e-9)
}

func TestCompileSkipsMarkerOnlyTransition(t *testing.T) {
	elems, ast := compile(t, "stateDiagram-v2\n[*] --> A\nA --> [*]\n[*] --> [*]")
	require.Len(t, ast.Connections, 2)
	require.Len(t, ast.Skipped, 1)
	assert.Len(t, elems, 3)
}

// Hand-built ASTs can still carry a marker-only connection; ValidateAST
// reports it before conversion.
func TestConvertMarkerOnlyFails(t *testing.T) {
	ast := &diagram.AST{
		Kind:        diagram.KindState,
		Nodes:       []diagram.Node{{ID: "A", Label: "A", Shape: diagram.ShapeRounded}},
		Connections: []diagram.Connection{{From: diagram.Marker, To: diagram.Marker}},
	}
	res, err := layout.Compute(ast, layout.DefaultOptions())
	require.NoError(t, err)
	_, err = testConverter().Convert(ast, res)
	assert.ErrorContains(t, err, "connection 1")
}

func TestConvertSequence(t *testing.T) {
	elems, _ := compile(t, "sequenceDiagram\nAlice->>Bob: Hi\nBob-->>Alice: Hello\nBob->>Bob: think")
	assert.Equal(t, 2, countPrefix(elems, RefLifeline))

	life, ok := byRef(elems, "lifeline:Bob")
	require.True(t, ok)
	assert.Equal(t, board.TypeLine, life.Type)
	assert.Equal(t, board.StrokeDashed, life.Style.StrokeStyle)
	assert.Equal(t, 270.0, life.X)

	hi, _ := byRef(elems, "edge:1")
	assert.Equal(t, board.TypeArrow, hi.Type)
	assert.Equal(t, 70.0, hi.X)
	assert.Equal(t, 110.0, hi.Y)
	assert.Equal(t, []board.Point{{X: 0, Y: 0}, {X: 200, Y: 0}}, hi.Points)

	hello, _ := byRef(elems, "edge:2")
	assert.Equal(t, board.StrokeDashed, hello.Style.StrokeStyle)
	assert.Equal(t, -200.0, hello.Points[1].X)

	self, _ := byRef(elems, "edge:3")
	assert.Len(t, self.Points, 4)
	assert.Equal(t, 270.0, self.X)
}

func TestConvertShapesAndMembers(t *testing.T) {
	elems, _ := compile(t, "flowchart TD\nA((Hi))\nB(rounded)")
	a, _ := byRef(elems, "node:A")
	assert.Equal(t, board.TypeCircle, a.Type)
	assert.Equal(t, 70.0, a.Radius)
	assert.Equal(t, 70.0, a.X)
	assert.Equal(t, 70.0, a.Y)

	b, _ := byRef(elems, "node:B")
	assert.Equal(t, board.TypeRectangle, b.Type)

	elems, _ = compile(t, "classDiagram\nclass Duck {\n+String beak\n+swim()\n}")
	duck, _ := byRef(elems, "node:Duck")
	assert.Equal(t, "Duck\n+String beak\n+swim()", duck.Text)
}

func TestConvertSelfLoop(t *testing.T) {
	elems, _ := compile(t, "flowchart TD\nA --> A")
	loop, ok := byRef(elems, "edge:1")
	require.True(t, ok)
	require.Len(t, loop.Points, 4)
	assert.Equal(t, 140.0, loop.X)
}

func TestConvertMissingLayout(t *testing.T) {
	ast, err := diagram.Parse("flowchart TD\nA --> B")
	require.NoError(t, err)
	res := &layout.Result{Positions: map[string]layout.Position{"A": {}}, Sizes: map[string]layout.Size{}}
	_, err = testConverter().Convert(ast, res)
	assert.True(t, errors.Is(err, ErrNoLayout))
}

func TestCompileUndetected(t *testing.T) {
	_, _, err := testConverter().Compile("nope", layout.DefaultOptions())
	assert.True(t, errors.Is(err, diagram.ErrUndetected))
}
