package diagram

import "strings"

var sequenceArrows = []string{
	"->>", "-->>",
	"->", "-->",
	"-x", "--x",
	"-)", "--)",
	"<<->>", "<<-->>",
}

// Block and annotation keywords that carry no participants or messages.
var sequenceIgnored = []string{
	"autonumber", "activate", "deactivate", "note", "loop", "alt", "else",
	"opt", "par", "and", "critical", "option", "break", "rect", "end", "box",
	"destroy", "links", "link", "accTitle", "accDescr",
}

func parseSequence(b *builder, _ sourceLine, lines []sourceLine) {
	for _, line := range lines {
		sequenceStatement(b, line)
	}
}

func sequenceStatement(b *builder, line sourceLine) {
	stmt := line.text
	l := newLexer(stmt)

	l.acceptWord("create")
	l.skipSpace()
	if shape, ok := participantKeyword(l); ok {
		l.skipSpace()
		id, alias := participantDecl(l.rest())
		if id == "" {
			b.skip(line, stmt, "participant without a name")
			return
		}
		b.declare(id, NodeKindParticipant, alias, shape)
		return
	}

	l.reset(0)
	if l.acceptWord("title") {
		l.skipSpace()
		l.accept(":")
		b.ast.Title = l.rest()
		return
	}
	at := l.mark()
	c, reason, ok := sequenceMessage(l)
	if !ok {
		l.reset(at)
		for _, kw := range sequenceIgnored {
			if l.acceptKeyword(kw) {
				return
			}
		}
		b.skip(line, stmt, reason)
		return
	}

	// Message endpoints declare participants implicitly.
	b.ref(c.From, NodeKindParticipant, ShapeRectangle).Declared = true
	b.ref(c.To, NodeKindParticipant, ShapeRectangle).Declared = true
	b.connect(c)
}

// sequenceMessage reads "From<arrow>To: text". On failure it returns the
// reason the statement is not a message.
func sequenceMessage(l *lexer) (Connection, string, bool) {
	l.skipSpace()
	from := strings.TrimSpace(sequenceActor(l))
	if from == "" {
		return Connection{}, "expected a participant", false
	}
	arrow, ok := l.acceptAny(sequenceArrows)
	if !ok {
		return Connection{}, "expected a message arrow after " + quoteID(from), false
	}
	// Activation shorthand: A->>+B / A-->>-B.
	if !l.accept("+") {
		l.accept("-")
	}
	to := strings.TrimSpace(l.until(func(r rune) bool { return r == ':' }))
	if to == "" {
		return Connection{}, "expected a message target", false
	}

	c := Connection{From: from, To: to, Label: l.label(), Directed: true}
	switch {
	case strings.Contains(arrow, "--"):
		c.Kind = ConnDotted
	case arrow == "->":
		c.Kind = ConnLine
	default:
		c.Kind = ConnArrow
	}
	if arrow == "->" || arrow == "-->" {
		c.Directed = false
	}
	return c, "", true
}

// sequenceActor reads a message sender. A '-' between identifier runes
// stays in the name unless it starts the -x arrow.
func sequenceActor(l *lexer) string {
	start := l.mark()
	for !l.eof() {
		r := l.peek()
		if r == '-' {
			n := l.peekN(1)
			if l.pos == start || !isIdentRune(n) || n == 'x' {
				break
			}
		} else if r == '<' || r == ':' {
			break
		}
		l.next()
	}
	return string(l.src[start:l.pos])
}

func participantKeyword(l *lexer) (Shape, bool) {
	switch {
	case l.acceptWord("participant"):
		return ShapeRectangle, true
	case l.acceptWord("actor"):
		return ShapeActor, true
	}
	return "", false
}

// participantDecl splits "Id as Display Name".
func participantDecl(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " as "); i >= 0 {
		return unquote(s[:i]), unquote(s[i+4:])
	}
	return unquote(s), ""
}
