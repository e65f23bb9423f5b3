// Package diagram detects, parses and validates the textual diagram DSL.
//
// Five grammars are supported: flowchart, sequence, class, state and ER.
// Each one is a small recursive-descent scanner over the shared statement
// lexer in lexer.go. Parsing is lenient: statements that cannot be
// interpreted are recorded in AST.Skipped and the rest of the diagram is
// still produced.
package diagram

import "strings"

// Kind identifies a diagram grammar.
type Kind string

const (
	KindUnknown   Kind = ""
	KindFlowchart Kind = "flowchart"
	KindSequence  Kind = "sequence"
	KindClass     Kind = "class"
	KindState     Kind = "state"
	KindER        Kind = "er"
)

// String returns the kind name, or "undetected" for KindUnknown.
func (k Kind) String() string {
	if k == KindUnknown {
		return "undetected"
	}
	return string(k)
}

// Kinds lists every supported kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindFlowchart, KindSequence, KindClass, KindState, KindER}
}

// ParseKindName resolves a user-supplied kind hint. Both the short names
// ("sequence") and the DSL keywords ("sequenceDiagram") are accepted.
func ParseKindName(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "flowchart", "graph", "flow":
		return KindFlowchart, true
	case "sequence", "sequencediagram":
		return KindSequence, true
	case "class", "classdiagram", "classdiagram-v2":
		return KindClass, true
	case "state", "statediagram", "statediagram-v2":
		return KindState, true
	case "er", "erdiagram", "entity":
		return KindER, true
	}
	return KindUnknown, false
}

// Direction is the main flow direction of a diagram.
type Direction string

const (
	DirectionTB Direction = "TB"
	DirectionBT Direction = "BT"
	DirectionLR Direction = "LR"
	DirectionRL Direction = "RL"
)

func parseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(s) {
	case "TB", "TD":
		return DirectionTB, true
	case "BT":
		return DirectionBT, true
	case "LR":
		return DirectionLR, true
	case "RL":
		return DirectionRL, true
	}
	return "", false
}

// NodeKind classifies a node by the grammar that produced it.
type NodeKind string

const (
	NodeKindNode        NodeKind = "node"
	NodeKindParticipant NodeKind = "participant"
	NodeKindClass       NodeKind = "class"
	NodeKindState       NodeKind = "state"
	NodeKindEntity      NodeKind = "entity"
)

// Shape is a rendering hint. Renderers fall back to a rectangle for shapes
// they do not know.
type Shape string

const (
	ShapeRectangle  Shape = "rectangle"
	ShapeRounded    Shape = "rounded"
	ShapeCircle     Shape = "circle"
	ShapeDiamond    Shape = "diamond"
	ShapeHexagon    Shape = "hexagon"
	ShapeStadium    Shape = "stadium"
	ShapeSubroutine Shape = "subroutine"
	ShapeCylinder   Shape = "cylinder"
	ShapeAsymmetric Shape = "asymmetric"
	ShapeActor      Shape = "actor"
	ShapeBar        Shape = "bar"
)

// ConnKind is the line style of a connection.
type ConnKind string

const (
	ConnArrow  ConnKind = "arrow"
	ConnLine   ConnKind = "line"
	ConnDotted ConnKind = "dotted"
	ConnThick  ConnKind = "thick"
)

// Relationship tags class and ER connections.
type Relationship string

const (
	RelNone        Relationship = ""
	RelInheritance Relationship = "inheritance"
	RelRealization Relationship = "realization"
	RelComposition Relationship = "composition"
	RelAggregation Relationship = "aggregation"
	RelAssociation Relationship = "association"
	RelDependency  Relationship = "dependency"
	RelOneToMany   Relationship = "one-to-many"
	RelManyToMany  Relationship = "many-to-many"
)

// Marker is the reserved start/end pseudo-state of state diagrams. It may
// appear as a connection endpoint but never as a node.
const Marker = "[*]"

// Node is a diagram vertex.
type Node struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	Kind       NodeKind `json:"kind"`
	Shape      Shape    `json:"shape"`
	Attributes []string `json:"attributes,omitempty"`
	Methods    []string `json:"methods,omitempty"`
	Group      string   `json:"group,omitempty"`
	// Declared is false for nodes synthesized from a bare reference.
	Declared bool `json:"declared"`
}

// Cardinality holds the raw ER cardinality tokens of both ends.
type Cardinality struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Connection is a diagram edge or message.
type Connection struct {
	From         string       `json:"from"`
	To           string       `json:"to"`
	Label        string       `json:"label,omitempty"`
	Kind         ConnKind     `json:"kind"`
	Directed     bool         `json:"directed"`
	Relationship Relationship `json:"relationship,omitempty"`
	Cardinality  *Cardinality `json:"cardinality,omitempty"`
}

// AST is the parsed form of a diagram.
type AST struct {
	Kind        Kind         `json:"kind"`
	Direction   Direction    `json:"direction,omitempty"`
	Title       string       `json:"title,omitempty"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Skipped     []ParseError `json:"skipped,omitempty"`
}

// Node returns the node with the given id.
func (a *AST) Node(id string) (Node, bool) {
	for _, n := range a.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodeIndex maps node ids to their position in Nodes.
func (a *AST) NodeIndex() map[string]int {
	idx := make(map[string]int, len(a.Nodes))
	for i, n := range a.Nodes {
		idx[n.ID] = i
	}
	return idx
}

// IsMarker reports whether id is the reserved start/end marker.
func IsMarker(id string) bool {
	return id == Marker
}
