package diagram

import "strings"

type sourceLine struct {
	num  int
	text string // trimmed
	raw  string // untrimmed, for YAML blocks
}

// rawLines splits text into numbered lines, dropping a BOM and CR endings.
func rawLines(text string) []sourceLine {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]sourceLine, len(parts))
	for i, p := range parts {
		raw := strings.TrimRight(p, "\r")
		out[i] = sourceLine{num: i + 1, text: strings.TrimSpace(raw), raw: raw}
	}
	return out
}

// meaningful removes blank and %% comment lines.
func meaningful(lines []sourceLine) []sourceLine {
	out := lines[:0:0]
	for _, l := range lines {
		if l.text == "" || strings.HasPrefix(l.text, "%%") {
			continue
		}
		out = append(out, l)
	}
	return out
}

// prepare returns frontmatter and the statement lines of text.
func prepare(text string) (frontmatter, []sourceLine) {
	fm, rest := splitFrontmatter(rawLines(text))
	return fm, meaningful(rest)
}

// keywordKind maps the leading keyword of a header line to a kind.
func keywordKind(word string) Kind {
	switch word {
	case "flowchart", "graph":
		return KindFlowchart
	case "sequenceDiagram":
		return KindSequence
	case "classDiagram", "classDiagram-v2":
		return KindClass
	case "stateDiagram", "stateDiagram-v2":
		return KindState
	case "erDiagram":
		return KindER
	}
	return KindUnknown
}

// headerWord returns the first token of a header line. A trailing ';' is
// not part of it ("graph TD;A-->B").
func headerWord(line string) string {
	end := strings.IndexFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ';'
	})
	if end < 0 {
		return line
	}
	return line[:end]
}

// Detect returns the diagram kind selected by the first meaningful token
// of text, or KindUnknown.
func Detect(text string) Kind {
	_, lines := prepare(text)
	if len(lines) == 0 {
		return KindUnknown
	}
	return keywordKind(headerWord(lines[0].text))
}
