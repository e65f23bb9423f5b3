package diagram

import (
	"strings"
	"unicode"
)

// lexer scans a single statement. All grammars share it; each grammar
// supplies its own glyph tables and identifier rules.
type lexer struct {
	src []rune
	pos int
}

func newLexer(s string) *lexer {
	return &lexer{src: []rune(s)}
}

func (l *lexer) eof() bool { return l.pos >= len(l.src) }

func (l *lexer) peek() rune { return l.peekN(0) }

func (l *lexer) peekN(n int) rune {
	if l.pos+n >= len(l.src) || l.pos+n < 0 {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *lexer) next() rune {
	if l.eof() {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	return r
}

func (l *lexer) mark() int     { return l.pos }
func (l *lexer) reset(pos int) { l.pos = pos }

func (l *lexer) skipSpace() {
	for !l.eof() && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) hasPrefix(s string) bool {
	rs := []rune(s)
	if l.pos+len(rs) > len(l.src) {
		return false
	}
	for i, r := range rs {
		if l.src[l.pos+i] != r {
			return false
		}
	}
	return true
}

// accept consumes s when it is next in the input.
func (l *lexer) accept(s string) bool {
	if !l.hasPrefix(s) {
		return false
	}
	l.pos += len([]rune(s))
	return true
}

// acceptAny consumes the longest glyph of set that is next in the input.
func (l *lexer) acceptAny(set []string) (string, bool) {
	best := ""
	for _, g := range set {
		if len(g) > len(best) && l.hasPrefix(g) {
			best = g
		}
	}
	if best == "" {
		return "", false
	}
	l.pos += len([]rune(best))
	return best, true
}

// acceptWord consumes word when it is followed by a non-identifier rune.
func (l *lexer) acceptWord(word string) bool {
	if !l.hasPrefix(word) {
		return false
	}
	after := l.peekN(len([]rune(word)))
	if after != 0 && isIdentRune(after) {
		return false
	}
	l.pos += len([]rune(word))
	return true
}

// acceptKeyword is acceptWord ignoring case.
func (l *lexer) acceptKeyword(word string) bool {
	n := len([]rune(word))
	if l.pos+n > len(l.src) || !strings.EqualFold(string(l.src[l.pos:l.pos+n]), word) {
		return false
	}
	if after := l.peekN(n); after != 0 && isIdentRune(after) {
		return false
	}
	l.pos += n
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ident consumes identifier runes. extra widens the accepted set.
func (l *lexer) ident(extra func(rune) bool) string {
	start := l.pos
	for !l.eof() {
		r := l.src[l.pos]
		if !isIdentRune(r) && (extra == nil || !extra(r)) {
			break
		}
		l.pos++
	}
	return string(l.src[start:l.pos])
}

// quoted consumes a double-quoted string and returns its contents.
func (l *lexer) quoted() (string, bool) {
	if l.peek() != '"' {
		return "", false
	}
	start := l.pos
	l.pos++
	var b strings.Builder
	for !l.eof() {
		r := l.next()
		if r == '"' {
			return b.String(), true
		}
		b.WriteRune(r)
	}
	l.reset(start)
	return "", false
}

// delimited reads up to the close delimiter, honouring nested occurrences
// of open. The close delimiter is consumed; the result is trimmed.
func (l *lexer) delimited(open, close string) (string, bool) {
	start := l.pos
	if s, ok := l.quoted(); ok {
		l.skipSpace()
		if l.accept(close) {
			return s, true
		}
		l.reset(start)
	}
	depth := 0
	for !l.eof() {
		if depth == 0 && l.hasPrefix(close) {
			text := string(l.src[start:l.pos])
			l.accept(close)
			return strings.TrimSpace(text), true
		}
		switch {
		case open != "" && l.hasPrefix(open):
			depth++
			l.pos += len([]rune(open))
		case depth > 0 && l.hasPrefix(close):
			depth--
			l.pos += len([]rune(close))
		default:
			l.pos++
		}
	}
	l.reset(start)
	return "", false
}

// until consumes runes up to (not including) the first rune matching stop.
func (l *lexer) until(stop func(rune) bool) string {
	start := l.pos
	for !l.eof() && !stop(l.src[l.pos]) {
		l.pos++
	}
	return string(l.src[start:l.pos])
}

// rest consumes the remainder of the statement.
func (l *lexer) rest() string {
	s := string(l.src[l.pos:])
	l.pos = len(l.src)
	return strings.TrimSpace(s)
}

// label reads an optional ": text" suffix. Quotes around text are removed.
func (l *lexer) label() string {
	l.skipSpace()
	if !l.accept(":") {
		return ""
	}
	return unquote(l.rest())
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// splitStatements splits a line on ';' outside quotes and brackets.
func splitStatements(line string) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[' || r == '(' || r == '{':
			depth++
		case r == ']' || r == ')' || r == '}':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			if s := strings.TrimSpace(line[start:i]); s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(line[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
