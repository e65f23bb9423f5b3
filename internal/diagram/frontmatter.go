package diagram

import (
	"strings"

	"gopkg.in/yaml.v3"
)

type frontmatter struct {
	Title  string         `yaml:"title"`
	Config map[string]any `yaml:"config"`
}

// splitFrontmatter strips a leading YAML block delimited by "---" lines.
// Invalid YAML still removes the block so that detection can proceed;
// only the metadata is lost.
func splitFrontmatter(lines []sourceLine) (frontmatter, []sourceLine) {
	var fm frontmatter

	start := 0
	for start < len(lines) && lines[start].text == "" {
		start++
	}
	if start >= len(lines) || lines[start].text != "---" {
		return fm, lines
	}

	end := -1
	for i := start + 1; i < len(lines); i++ {
		if lines[i].text == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return fm, lines
	}

	block := make([]string, 0, end-start-1)
	for _, l := range lines[start+1 : end] {
		block = append(block, l.raw)
	}
	if err := yaml.Unmarshal([]byte(strings.Join(block, "\n")), &fm); err != nil {
		fm = frontmatter{}
	}
	return fm, lines[end+1:]
}
