package diagram

import "strings"

type classGlyph struct {
	rel      Relationship
	kind     ConnKind
	directed bool
}

var classGlyphs = map[string]classGlyph{
	"<|--": {RelInheritance, ConnLine, true},
	"--|>": {RelInheritance, ConnLine, true},
	"<|..": {RelRealization, ConnDotted, true},
	"..|>": {RelRealization, ConnDotted, true},
	"*--":  {RelComposition, ConnLine, true},
	"--*":  {RelComposition, ConnLine, true},
	"o--":  {RelAggregation, ConnLine, true},
	"--o":  {RelAggregation, ConnLine, true},
	"-->":  {RelAssociation, ConnArrow, true},
	"<--":  {RelAssociation, ConnArrow, true},
	"--":   {RelAssociation, ConnLine, false},
	"..>":  {RelDependency, ConnDotted, true},
	"<..":  {RelDependency, ConnDotted, true},
	"..":   {RelAssociation, ConnDotted, false},
}

var classGlyphSet = func() []string {
	out := make([]string, 0, len(classGlyphs))
	for g := range classGlyphs {
		out = append(out, g)
	}
	return out
}()

func parseClass(b *builder, _ sourceLine, lines []sourceLine) {
	body := "" // class whose { ... } block is open
	for _, line := range lines {
		stmt := line.text
		if body != "" {
			if stmt == "}" {
				body = ""
				continue
			}
			addMember(b, body, stmt)
			continue
		}
		body = classStatement(b, line)
	}
}

// classStatement handles one line outside a member block and returns the
// class name when the line opens one.
func classStatement(b *builder, line sourceLine) string {
	stmt := line.text
	if applyDirection(b, stmt) {
		return ""
	}
	l := newLexer(stmt)

	switch {
	case l.accept("<<"):
		// Annotation: <<interface>> Name.
		if _, ok := l.delimited("", ">>"); ok {
			l.skipSpace()
			if name := className(l); name != "" {
				b.ref(name, NodeKindClass, ShapeRectangle).Declared = true
			}
		}
		return ""
	case l.acceptWord("note"), l.acceptWord("classDef"), l.acceptWord("style"),
		l.acceptWord("cssClass"), l.acceptWord("click"), l.acceptWord("link"), l.acceptWord("callback"):
		return ""
	case l.acceptWord("class"):
		l.skipSpace()
		name := className(l)
		if name == "" {
			b.skip(line, stmt, "class without a name")
			return ""
		}
		label := ""
		if l.accept("[") {
			label, _ = l.delimited("", "]")
			label = unquote(label)
		}
		b.declare(name, NodeKindClass, label, ShapeRectangle)
		l.skipSpace()
		if !l.accept("{") {
			return ""
		}
		// Single-line block: class A { +x }.
		inner := l.rest()
		if strings.HasSuffix(inner, "}") {
			for _, m := range strings.Split(strings.TrimSuffix(inner, "}"), ";") {
				addMember(b, name, m)
			}
			return ""
		}
		if inner != "" {
			addMember(b, name, inner)
		}
		return name
	}

	from := className(l)
	if from == "" {
		b.skip(line, stmt, "expected a class name")
		return ""
	}
	l.skipSpace()

	// Member line: Name : +signature.
	if l.accept(":") {
		addMember(b, from, l.rest())
		return ""
	}

	fromCard, _ := l.quoted()
	l.skipSpace()
	glyph, ok := l.acceptAny(classGlyphSet)
	if !ok {
		if l.eof() {
			b.declare(from, NodeKindClass, "", ShapeRectangle)
			return ""
		}
		b.skip(line, stmt, "expected a relationship after "+quoteID(from))
		return ""
	}
	l.skipSpace()
	toCard, _ := l.quoted()
	l.skipSpace()
	to := className(l)
	if to == "" {
		b.skip(line, stmt, "expected a class name after "+glyph)
		return ""
	}
	label := l.label()

	b.ref(from, NodeKindClass, ShapeRectangle).Declared = true
	b.ref(to, NodeKindClass, ShapeRectangle).Declared = true

	g := classGlyphs[glyph]
	c := Connection{
		From:         from,
		To:           to,
		Label:        label,
		Kind:         g.kind,
		Directed:     g.directed,
		Relationship: g.rel,
	}
	if fromCard != "" || toCard != "" {
		c.Cardinality = &Cardinality{From: fromCard, To: toCard}
	}
	b.connect(c)
	return ""
}

// className reads a class identifier and drops a generic suffix (Name~T~).
func className(l *lexer) string {
	name := l.ident(nil)
	if name == "" {
		return ""
	}
	if l.accept("~") {
		l.until(func(r rune) bool { return r == '~' })
		l.accept("~")
	}
	return name
}

// addMember appends a member to class. A signature containing '(' is a
// method; anything else is an attribute.
func addMember(b *builder, class, member string) {
	member = strings.TrimSpace(member)
	if member == "" || strings.HasPrefix(member, "<<") || strings.HasPrefix(member, "%%") {
		return
	}
	n := b.ref(class, NodeKindClass, ShapeRectangle)
	n.Declared = true
	if strings.Contains(member, "(") {
		n.Methods = append(n.Methods, member)
	} else {
		n.Attributes = append(n.Attributes, member)
	}
}
