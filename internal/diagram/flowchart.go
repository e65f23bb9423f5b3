package diagram

import (
	"strings"
)

// Bracket forms in match order: longer openers first.
var flowShapes = []struct {
	open, close string
	shape       Shape
}{
	{"((", "))", ShapeCircle},
	{"([", "])", ShapeStadium},
	{"[[", "]]", ShapeSubroutine},
	{"[(", ")]", ShapeCylinder},
	{"{{", "}}", ShapeHexagon},
	{"[", "]", ShapeRectangle},
	{"(", ")", ShapeRounded},
	{"{", "}", ShapeDiamond},
	{">", "]", ShapeAsymmetric},
}

// Statements that style or annotate a flowchart without adding structure.
var flowIgnored = []string{"classDef", "class", "style", "linkStyle", "click", "accTitle", "accDescr"}

type flowRef struct {
	id    string
	label string
	shape Shape
}

type flowLink struct {
	kind     ConnKind
	directed bool
	label    string
}

func parseFlowchart(b *builder, header sourceLine, lines []sourceLine) {
	b.ast.Direction = DirectionTB

	parts := splitStatements(header.text)
	if len(parts) > 0 {
		if d, ok := parseDirection(parts[0]); ok {
			b.ast.Direction = d
			parts = parts[1:]
		}
	}
	for _, stmt := range parts {
		flowStatement(b, header, stmt)
	}

	for _, line := range lines {
		for _, stmt := range splitStatements(line.text) {
			flowStatement(b, line, stmt)
		}
	}
}

func flowStatement(b *builder, line sourceLine, stmt string) {
	l := newLexer(stmt)

	switch {
	case l.acceptWord("subgraph"):
		l.skipSpace()
		id := l.ident(nil)
		l.skipSpace()
		if id == "" {
			id = unquote(l.rest())
		}
		if id == "" {
			b.skip(line, stmt, "subgraph without a name")
			return
		}
		b.pushGroup(id)
		return
	case l.acceptWord("end"):
		if !b.popGroup() {
			b.skip(line, stmt, "end without subgraph")
		}
		return
	case applyDirection(b, stmt):
		return
	}
	for _, kw := range flowIgnored {
		if l.acceptWord(kw) {
			return
		}
	}

	groups, links, reason := scanFlowChain(l)
	if reason != "" {
		b.skip(line, stmt, reason)
		return
	}

	for gi, g := range groups {
		for _, r := range g {
			if r.shape != "" {
				b.declare(r.id, NodeKindNode, r.label, r.shape)
				continue
			}
			n := b.ref(r.id, NodeKindNode, ShapeRectangle)
			// Standalone statements and link sources introduce the node.
			if len(groups) == 1 || gi < len(groups)-1 {
				n.Declared = true
			}
		}
	}
	for i, link := range links {
		for _, from := range groups[i] {
			for _, to := range groups[i+1] {
				b.connect(Connection{
					From:     from.id,
					To:       to.id,
					Label:    link.label,
					Kind:     link.kind,
					Directed: link.directed,
				})
			}
		}
	}
}

// scanFlowChain parses "group (link group)*" where a group is
// "ref (& ref)*". Nothing is committed unless the whole statement parses.
func scanFlowChain(l *lexer) ([][]flowRef, []flowLink, string) {
	var groups [][]flowRef
	var links []flowLink

	g, reason := scanFlowGroup(l)
	if reason != "" {
		return nil, nil, reason
	}
	groups = append(groups, g)

	for {
		l.skipSpace()
		if l.eof() {
			return groups, links, ""
		}
		link, ok := scanFlowLink(l)
		if !ok {
			return nil, nil, "expected a link after " + quoteID(groups[len(groups)-1][0].id)
		}
		g, reason := scanFlowGroup(l)
		if reason != "" {
			return nil, nil, reason
		}
		links = append(links, link)
		groups = append(groups, g)
	}
}

func scanFlowGroup(l *lexer) ([]flowRef, string) {
	var refs []flowRef
	for {
		l.skipSpace()
		r, reason := scanFlowRef(l)
		if reason != "" {
			return nil, reason
		}
		refs = append(refs, r)
		l.skipSpace()
		if !l.accept("&") {
			return refs, ""
		}
	}
}

func scanFlowRef(l *lexer) (flowRef, string) {
	id := l.ident(nil)
	if id == "" {
		return flowRef{}, "expected a node id"
	}
	r := flowRef{id: id}

	for _, s := range flowShapes {
		mark := l.mark()
		if !l.accept(s.open) {
			continue
		}
		label, ok := l.delimited(s.open, s.close)
		if !ok {
			l.reset(mark)
			return flowRef{}, "unterminated label for " + quoteID(id)
		}
		r.label, r.shape = label, s.shape
		break
	}

	// Class shorthand: A:::className.
	if l.accept(":::") {
		l.ident(func(r rune) bool { return r == '-' })
	}
	return r, ""
}

// scanFlowLink reads one link operator with its optional label. Supported:
// -->, ---, -.->, -.-, ==>, ===, --o, --x, <-->, longer dash runs,
// "-- text -->" and "-->|text|".
func scanFlowLink(l *lexer) (flowLink, bool) {
	start := l.mark()
	l.skipSpace()

	bidir := l.accept("<")
	body := l.until(func(r rune) bool { return r != '-' && r != '=' && r != '.' })
	if body == "" {
		l.reset(start)
		return flowLink{}, false
	}

	_, hasHead := flowHead(l)
	link := flowLink{directed: hasHead || bidir}

	if !hasHead && (body == "--" || body == "==" || body == "-.") {
		// "-- text -->" form: the label runs to the closing operator.
		label, closing, ok := flowTextLabel(l, body)
		if !ok {
			l.reset(start)
			return flowLink{}, false
		}
		link.label = label
		body += closing
		if strings.HasSuffix(closing, ">") || strings.HasSuffix(closing, "o") || strings.HasSuffix(closing, "x") {
			link.directed = true
		}
	} else if !hasHead && len([]rune(body)) < 3 {
		l.reset(start)
		return flowLink{}, false
	}

	switch {
	case strings.Contains(body, "."):
		link.kind = ConnDotted
	case strings.Contains(body, "="):
		link.kind = ConnThick
	case link.directed:
		link.kind = ConnArrow
	default:
		link.kind = ConnLine
	}

	l.skipSpace()
	if l.accept("|") {
		text := l.until(func(r rune) bool { return r == '|' })
		if !l.accept("|") {
			l.reset(start)
			return flowLink{}, false
		}
		link.label = unquote(text)
	}
	return link, true
}

// flowHead consumes an arrow head. 'o' and 'x' only count as heads when
// they are not the start of the next node id.
func flowHead(l *lexer) (rune, bool) {
	switch r := l.peek(); r {
	case '>':
		l.next()
		return r, true
	case 'o', 'x':
		after := l.peekN(1)
		if after == 0 || after == ' ' || after == '\t' || after == '|' {
			l.next()
			return r, true
		}
	}
	return 0, false
}

func flowTextLabel(l *lexer, open string) (string, string, bool) {
	var closers []string
	switch open {
	case "--":
		closers = []string{"-->", "---", "--o", "--x"}
	case "==":
		closers = []string{"==>", "===", "==o", "==x"}
	default:
		closers = []string{".->", ".-"}
	}

	start := l.mark()
	for !l.eof() {
		pos := l.mark()
		if c, ok := l.acceptAny(closers); ok {
			label := strings.TrimSpace(string(l.src[start:pos]))
			// Absorb extra dashes of a long closer ("---->").
			c += l.until(func(r rune) bool { return r != '-' && r != '=' })
			if !strings.HasSuffix(c, ">") {
				if h, ok := flowHead(l); ok {
					c += string(h)
				}
			}
			if label == "" {
				l.reset(start)
				return "", "", false
			}
			return unquote(label), c, true
		}
		l.next()
	}
	l.reset(start)
	return "", "", false
}

func quoteID(id string) string {
	return `"` + id + `"`
}
