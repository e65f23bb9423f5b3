package diagram

import "strings"

type grammar func(b *builder, header sourceLine, lines []sourceLine)

var grammars = map[Kind]grammar{
	KindFlowchart: parseFlowchart,
	KindSequence:  parseSequence,
	KindClass:     parseClass,
	KindState:     parseState,
	KindER:        parseER,
}

// Parse detects the grammar of text and parses it.
func Parse(text string) (*AST, error) {
	return ParseKind(text, KindUnknown)
}

// ParseKind parses text with the given grammar. KindUnknown means detect.
// The returned error is always a *ParseError wrapping ErrUndetected;
// statement-level problems are reported in AST.Skipped instead.
func ParseKind(text string, kind Kind) (*AST, error) {
	fm, lines := prepare(text)

	detected := KindUnknown
	if len(lines) > 0 {
		detected = keywordKind(headerWord(lines[0].text))
	}
	if kind == KindUnknown {
		kind = detected
	}
	g, ok := grammars[kind]
	if !ok {
		return nil, undetectedError()
	}

	var header sourceLine
	if detected != KindUnknown {
		header = lines[0]
		header.text = strings.TrimSpace(strings.TrimPrefix(header.text, headerWord(header.text)))
		lines = lines[1:]
	}

	b := newBuilder(kind)
	b.ast.Title = fm.Title
	g(b, header, lines)
	return b.ast, nil
}

// applyDirection handles a "direction XX" statement shared by several
// grammars. It reports whether stmt was one.
func applyDirection(b *builder, stmt string) bool {
	l := newLexer(stmt)
	if !l.acceptWord("direction") {
		return false
	}
	if d, ok := parseDirection(l.rest()); ok {
		b.ast.Direction = d
	}
	return true
}
