package diagram

import "strings"

func parseState(b *builder, _ sourceLine, lines []sourceLine) {
	inNote := false
	for _, line := range lines {
		stmt := line.text
		if inNote {
			if strings.EqualFold(stmt, "end note") {
				inNote = false
			}
			continue
		}
		inNote = stateStatement(b, line)
	}
}

func stateRef(l *lexer) string {
	if l.accept(Marker) {
		return Marker
	}
	return l.ident(nil)
}

// stateStatement handles one line and reports whether it opened a
// multi-line note block.
func stateStatement(b *builder, line sourceLine) bool {
	stmt := line.text
	if applyDirection(b, stmt) {
		return false
	}
	l := newLexer(stmt)

	switch {
	case stmt == "}":
		if !b.popGroup() {
			b.skip(line, stmt, "unbalanced '}'")
		}
		return false
	case stmt == "--":
		// Concurrency separator inside a composite state.
		return false
	case l.acceptWord("note"):
		return !strings.Contains(stmt, ":")
	case l.acceptWord("classDef"), l.acceptWord("class"), l.acceptWord("style"), l.acceptWord("accTitle"), l.acceptWord("accDescr"):
		return false
	case l.acceptWord("state"):
		stateDecl(b, line, l)
		return false
	}

	from := stateRef(l)
	if from == "" {
		b.skip(line, stmt, "expected a state")
		return false
	}
	l.skipSpace()

	// Description line: Id : text.
	if from != Marker && l.hasPrefix(":") {
		b.declare(from, NodeKindState, l.label(), "")
		return false
	}
	if !l.accept("-->") {
		if l.eof() && from != Marker {
			b.declare(from, NodeKindState, "", "")
			return false
		}
		b.skip(line, stmt, "expected --> after "+quoteID(from))
		return false
	}
	l.skipSpace()
	to := stateRef(l)
	if to == "" {
		b.skip(line, stmt, "expected a target state")
		return false
	}
	label := l.label()
	if from == Marker && to == Marker {
		b.skip(line, stmt, "transition between start/end markers")
		return false
	}

	if from != Marker {
		b.ref(from, NodeKindState, ShapeRounded).Declared = true
	}
	if to != Marker {
		b.ref(to, NodeKindState, ShapeRounded)
	}
	b.connect(Connection{From: from, To: to, Label: label, Kind: ConnArrow, Directed: true})
	return false
}

// stateDecl handles the forms after the "state" keyword:
//
//	state "Description" as Id
//	state Id : Description
//	state Id <<choice>>
//	state Id {
func stateDecl(b *builder, line sourceLine, l *lexer) {
	l.skipSpace()
	label := ""
	if q, ok := l.quoted(); ok {
		label = q
		l.skipSpace()
		if !l.acceptWord("as") {
			b.skip(line, line.text, "expected 'as' after state description")
			return
		}
		l.skipSpace()
	}
	id := l.ident(nil)
	if id == "" {
		b.skip(line, line.text, "state without a name")
		return
	}
	l.skipSpace()

	shape := ShapeRounded
	if l.accept("<<") {
		stereo, _ := l.delimited("", ">>")
		switch strings.ToLower(stereo) {
		case "choice":
			shape = ShapeDiamond
		case "fork", "join":
			shape = ShapeBar
		}
		l.skipSpace()
	}
	if text := l.label(); text != "" {
		label = text
	}
	b.declare(id, NodeKindState, label, shape)
	if l.accept("{") {
		b.pushGroup(id)
	}
}
