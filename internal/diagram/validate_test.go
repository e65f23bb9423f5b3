package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScenarioOne(t *testing.T) {
	res := Validate("flowchart TD\nA[Start] --> B{Decision}\nB -->|Yes| C[End]")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, KindFlowchart, res.Kind)
}

func TestValidateUndeclaredTarget(t *testing.T) {
	text := "flowchart TD\nA --> Z"

	ast, err := Parse(text)
	require.NoError(t, err, "parse must still succeed")
	_, ok := ast.Node("Z")
	require.True(t, ok, "Z is synthesized")

	res := Validate(text)
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `"Z"`)
	assert.Contains(t, res.Errors[0], "connection 1")
	assert.Contains(t, res.Errors[0], "target")
}

func TestValidateLenient(t *testing.T) {
	res := Validate("flowchart TD\nA --> Z", WithLenientReferences())
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)

	res = Validate("flowchart TD\nA --> Z", WithStrictReferences(false))
	assert.True(t, res.Valid)
}

func TestValidateCollectsAll(t *testing.T) {
	res := Validate("flowchart TD\nA --> X\nB --> Y\nC --> X")
	require.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors[0], "connection 1")
	assert.Contains(t, res.Errors[1], "connection 2")
	assert.Contains(t, res.Errors[2], "connection 3")
}

func TestValidateUndetected(t *testing.T) {
	res := Validate("just some prose")
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "unable to detect diagram type")
}

func TestValidateWithKind(t *testing.T) {
	res := Validate("Alice->>Bob: hi", WithKind(KindSequence))
	assert.True(t, res.Valid)
	assert.Equal(t, KindSequence, res.Kind)
}

func TestValidateEmpty(t *testing.T) {
	res := Validate("flowchart LR")
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"diagram has no nodes"}, res.Errors)
}

func TestValidateMarkerAndWarnings(t *testing.T) {
	res := Validate("stateDiagram-v2\n[*] --> Idle\nIdle --> [*]\n!!!")
	assert.True(t, res.Valid, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "line 4")
}

func TestValidateMarkerOnlyTransition(t *testing.T) {
	res := Validate("stateDiagram-v2\n[*] --> A\nA --> [*]\n[*] --> [*]")
	assert.True(t, res.Valid, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "start/end markers")

	ast := &AST{
		Kind:        KindState,
		Nodes:       []Node{{ID: "A", Declared: true}},
		Connections: []Connection{{From: Marker, To: Marker}},
	}
	res = ValidateAST(ast)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"connection 1: both endpoints are the start/end marker"}, res.Errors)
}

func TestValidateASTMissingNode(t *testing.T) {
	ast := &AST{
		Kind:        KindFlowchart,
		Nodes:       []Node{{ID: "A", Declared: true}},
		Connections: []Connection{{From: "Q", To: "A"}},
	}
	res := ValidateAST(ast, WithLenientReferences())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, `connection 1: source "Q" does not exist`, res.Errors[0])
}

func TestValidateAllGrammarsDeclared(t *testing.T) {
	texts := []string{
		"sequenceDiagram\nAlice->>Bob: Hi\nBob-->>Alice: Hello",
		"classDiagram\nAnimal <|-- Duck\nDuck : +swim()",
		"erDiagram\nCUSTOMER ||--o{ ORDER : places",
		"flowchart LR\nA[a] --> B[b]\nB --> C[c]",
	}
	for _, text := range texts {
		res := Validate(text)
		assert.True(t, res.Valid, "%q: %v", text, res.Errors)

		ast, err := Parse(text)
		require.NoError(t, err)
		for _, c := range ast.Connections {
			_, ok := ast.Node(c.From)
			assert.True(t, ok)
			_, ok = ast.Node(c.To)
			assert.True(t, ok)
		}
	}
}

func TestLexerHelpers(t *testing.T) {
	assert.Equal(t, []string{`A["x;y"] --> B`, "C"}, splitStatements(`A["x;y"] --> B; C`))
	assert.Equal(t, []string{"A{a;b}"}, splitStatements("A{a;b};"))

	l := newLexer(`[outer [inner]] tail`)
	require.True(t, l.accept("["))
	got, ok := l.delimited("[", "]")
	require.True(t, ok)
	assert.Equal(t, "outer [inner]", got)
	assert.Equal(t, "tail", l.rest())

	l = newLexer("-->>x")
	g, ok := l.acceptAny(sequenceArrows)
	require.True(t, ok)
	assert.Equal(t, "-->>", g)

	l = newLexer("endpoint")
	assert.False(t, l.acceptWord("end"))
	assert.True(t, newLexer("NOTE over A").acceptKeyword("note"))
}
