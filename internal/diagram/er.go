package diagram

import "strings"

var (
	erLeftEnds  = []string{"|o", "||", "}o", "}|"}
	erRightEnds = []string{"o|", "||", "o{", "|{"}
)

func parseER(b *builder, _ sourceLine, lines []sourceLine) {
	body := "" // entity whose attribute block is open
	for _, line := range lines {
		stmt := line.text
		if body != "" {
			if stmt == "}" {
				body = ""
				continue
			}
			addAttribute(b, body, stmt)
			continue
		}
		body = erStatement(b, line)
	}
}

// erStatement handles one line outside an attribute block and returns the
// entity name when the line opens one.
func erStatement(b *builder, line sourceLine) string {
	stmt := line.text
	if applyDirection(b, stmt) {
		return ""
	}
	l := newLexer(stmt)
	if l.acceptWord("title") {
		b.ast.Title = unquote(l.rest())
		return ""
	}
	if l.acceptWord("style") || l.acceptWord("classDef") || l.acceptWord("class") ||
		l.acceptWord("accTitle") || l.acceptWord("accDescr") {
		return ""
	}

	from := erEntity(l)
	if from == "" {
		b.skip(line, stmt, "expected an entity name")
		return ""
	}
	l.skipSpace()

	// Alias: p[Person].
	label := ""
	if l.accept("[") {
		label, _ = l.delimited("", "]")
		label = unquote(label)
		l.skipSpace()
	}

	if l.accept("{") {
		b.declare(from, NodeKindEntity, label, ShapeRectangle)
		inner := l.rest()
		if strings.HasSuffix(inner, "}") {
			for _, attr := range strings.Split(strings.TrimSuffix(inner, "}"), ";") {
				addAttribute(b, from, attr)
			}
			return ""
		}
		if inner != "" {
			addAttribute(b, from, inner)
		}
		return from
	}
	if l.eof() {
		b.declare(from, NodeKindEntity, label, ShapeRectangle)
		return ""
	}

	link, ok := erLink(l)
	if !ok {
		b.skip(line, stmt, "expected a relationship after "+quoteID(from))
		return ""
	}
	l.skipSpace()
	to := erEntity(l)
	if to == "" {
		b.skip(line, stmt, "expected an entity name after the relationship")
		return ""
	}
	link.From, link.To = from, to
	link.Label = l.label()

	b.declare(from, NodeKindEntity, label, ShapeRectangle)
	b.ref(to, NodeKindEntity, ShapeRectangle).Declared = true
	b.connect(link)
	return ""
}

// erLink reads "<left><line><right>", for example ||--o{ or }|..|{.
func erLink(l *lexer) (Connection, bool) {
	start := l.mark()
	left, ok := l.acceptAny(erLeftEnds)
	if !ok {
		return Connection{}, false
	}
	kind := ConnLine
	switch {
	case l.accept("--"):
	case l.accept(".."):
		kind = ConnDotted
	default:
		l.reset(start)
		return Connection{}, false
	}
	right, ok := l.acceptAny(erRightEnds)
	if !ok {
		l.reset(start)
		return Connection{}, false
	}

	manyLeft := strings.HasPrefix(left, "}")
	manyRight := strings.HasSuffix(right, "{")
	rel := RelAssociation
	switch {
	case manyLeft && manyRight:
		rel = RelManyToMany
	case manyLeft || manyRight:
		rel = RelOneToMany
	}
	return Connection{
		Kind:         kind,
		Relationship: rel,
		Cardinality:  &Cardinality{From: left, To: right},
	}, true
}

// erEntity reads an entity name. Hyphens are allowed inside a name but
// never start a relationship glyph.
func erEntity(l *lexer) string {
	if s, ok := l.quoted(); ok {
		return s
	}
	start := l.mark()
	for !l.eof() {
		r := l.peek()
		switch {
		case isIdentRune(r):
			l.next()
		case r == '-' && l.pos > start && isIdentRune(l.peekN(1)):
			l.next()
		default:
			return string(l.src[start:l.pos])
		}
	}
	return string(l.src[start:l.pos])
}

func addAttribute(b *builder, entity, attr string) {
	attr = strings.TrimSpace(attr)
	if attr == "" || strings.HasPrefix(attr, "%%") {
		return
	}
	n := b.ref(entity, NodeKindEntity, ShapeRectangle)
	n.Declared = true
	n.Attributes = append(n.Attributes, attr)
}
