package generate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/raido/internal/diagram"
)

// Template is an offline Generator. It reads the prompt as a list of steps
// separated by "->", commas, semicolons or newlines, and lays them out as a
// chain in the requested grammar (flowchart by default). An optional
// "Title: steps" prefix becomes the diagram title.
type Template struct{}

func (Template) Generate(ctx context.Context, prompt string, kind diagram.Kind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	title, steps := splitPrompt(prompt)
	if len(steps) == 0 {
		return "", ErrEmptyPrompt
	}
	if kind == diagram.KindUnknown {
		kind = diagram.KindFlowchart
	}

	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "---\ntitle: %s\n---\n", strconv.Quote(title))
	}
	id := func(i int) string { return "S" + strconv.Itoa(i+1) }

	switch kind {
	case diagram.KindFlowchart:
		sb.WriteString("flowchart TD\n")
		for i, s := range steps {
			fmt.Fprintf(&sb, "  %s[%s]\n", id(i), s)
		}
		for i := 1; i < len(steps); i++ {
			fmt.Fprintf(&sb, "  %s --> %s\n", id(i-1), id(i))
		}
	case diagram.KindSequence:
		sb.WriteString("sequenceDiagram\n")
		for i, s := range steps {
			fmt.Fprintf(&sb, "  participant %s as %s\n", id(i), s)
		}
		for i := 1; i < len(steps); i++ {
			fmt.Fprintf(&sb, "  %s->>%s: next\n", id(i-1), id(i))
		}
	case diagram.KindState:
		sb.WriteString("stateDiagram-v2\n")
		for i, s := range steps {
			fmt.Fprintf(&sb, "  state \"%s\" as %s\n", s, id(i))
		}
		fmt.Fprintf(&sb, "  [*] --> %s\n", id(0))
		for i := 1; i < len(steps); i++ {
			fmt.Fprintf(&sb, "  %s --> %s\n", id(i-1), id(i))
		}
		fmt.Fprintf(&sb, "  %s --> [*]\n", id(len(steps)-1))
	case diagram.KindClass:
		sb.WriteString("classDiagram\n")
		for i := range steps {
			fmt.Fprintf(&sb, "  class %s\n", id(i))
		}
		for i := 1; i < len(steps); i++ {
			fmt.Fprintf(&sb, "  %s --> %s\n", id(i-1), id(i))
		}
	case diagram.KindER:
		sb.WriteString("erDiagram\n")
		for i, s := range steps {
			fmt.Fprintf(&sb, "  %s[%s]\n", id(i), s)
		}
		for i := 1; i < len(steps); i++ {
			fmt.Fprintf(&sb, "  %s ||--o{ %s : has\n", id(i-1), id(i))
		}
	default:
		return "", fmt.Errorf("generate: unsupported kind %q", kind)
	}
	return sb.String(), nil
}

// splitPrompt extracts the optional title and the cleaned step labels.
func splitPrompt(prompt string) (string, []string) {
	title := ""
	if head, rest, ok := strings.Cut(prompt, ":"); ok && !strings.ContainsAny(head, ",;\n") {
		title, prompt = clean(head), rest
	}
	fields := strings.FieldsFunc(strings.ReplaceAll(prompt, "->", ","), func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	var steps []string
	for _, f := range fields {
		if s := clean(f); s != "" {
			steps = append(steps, s)
		}
	}
	return title, steps
}

// clean drops characters that delimit labels in the grammars.
func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]{}()"|<>:`, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
