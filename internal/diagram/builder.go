package diagram

// builder accumulates nodes in first-seen order and keeps ids unique.
type builder struct {
	ast   *AST
	index map[string]int
	group []string
}

func newBuilder(kind Kind) *builder {
	return &builder{
		ast:   &AST{Kind: kind, Nodes: []Node{}, Connections: []Connection{}},
		index: make(map[string]int),
	}
}

// ref returns the node for id, synthesizing an undeclared one with
// label = id when it does not exist yet.
func (b *builder) ref(id string, kind NodeKind, shape Shape) *Node {
	if i, ok := b.index[id]; ok {
		return &b.ast.Nodes[i]
	}
	b.index[id] = len(b.ast.Nodes)
	b.ast.Nodes = append(b.ast.Nodes, Node{
		ID:    id,
		Label: id,
		Kind:  kind,
		Shape: shape,
		Group: b.currentGroup(),
	})
	return &b.ast.Nodes[len(b.ast.Nodes)-1]
}

// declare marks id as explicitly declared. A non-empty label or shape
// replaces the synthesized defaults.
func (b *builder) declare(id string, kind NodeKind, label string, shape Shape) *Node {
	n := b.ref(id, kind, shape)
	n.Declared = true
	if label != "" {
		n.Label = label
	}
	if shape != "" {
		n.Shape = shape
	}
	return n
}

func (b *builder) connect(c Connection) {
	b.ast.Connections = append(b.ast.Connections, c)
}

func (b *builder) skip(l sourceLine, stmt, reason string) {
	b.ast.Skipped = append(b.ast.Skipped, ParseError{Line: l.num, Statement: stmt, Reason: reason})
}

func (b *builder) pushGroup(id string) { b.group = append(b.group, id) }

func (b *builder) popGroup() bool {
	if len(b.group) == 0 {
		return false
	}
	b.group = b.group[:len(b.group)-1]
	return true
}

func (b *builder) currentGroup() string {
	if len(b.group) == 0 {
		return ""
	}
	return b.group[len(b.group)-1]
}
