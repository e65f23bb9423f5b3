package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/convert"
	"github.com/starford/raido/internal/diagram"
	"github.com/starford/raido/internal/layout"
	"github.com/starford/raido/internal/session"
	"github.com/starford/raido/internal/tool"
)

// CompileFile compiles a diagram source file and writes the resulting
// elements to w as indented JSON.
func CompileFile(w io.Writer, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	elems, _, err := convert.New("cli").Compile(string(src), layout.DefaultOptions())
	if err != nil {
		return fmt.Errorf("compile %s: %w", path, err)
	}
	return writeIndented(w, elems)
}

// ValidateFile checks a diagram source file and prints a colored report.
// It reports whether the source is valid.
func ValidateFile(w io.Writer, path string, strict bool) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	res := diagram.Validate(string(src), diagram.WithStrictReferences(strict))

	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen, color.Bold)

	_, _ = bold.Fprintf(w, "%s", filepath.Base(path))
	if res.Kind != diagram.KindUnknown {
		fmt.Fprintf(w, " (%s)", res.Kind)
	}
	fmt.Fprintln(w)
	for _, e := range res.Errors {
		_, _ = red.Fprint(w, "  error   ")
		fmt.Fprintln(w, e)
	}
	for _, warn := range res.Warnings {
		_, _ = yellow.Fprint(w, "  warning ")
		fmt.Fprintln(w, warn)
	}
	if res.Valid {
		_, _ = green.Fprintln(w, "  ok")
	} else {
		_, _ = red.Fprintf(w, "  %d error(s)\n", len(res.Errors))
	}
	return res.Valid, nil
}

// ReplayResult is the board state left by a replayed script.
type ReplayResult struct {
	Elements []board.Element `json:"elements"`
	Viewport board.Viewport  `json:"viewport"`

	// History lists the applied commands, oldest first.
	History []string `json:"history"`
}

// Replay runs a gesture script against an empty board and writes the
// resulting elements to w. Diagram paths in the script are resolved
// relative to the script's directory.
func Replay(w io.Writer, scriptPath string, editor EditorConfig) error {
	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return err
	}
	opts := tool.DefaultOptions()
	opts.DragThreshold = editor.DragThreshold

	s := session.New(nil,
		session.WithUser("replay"),
		session.WithHistoryDepth(editor.HistoryDepth),
		session.WithToolOptions(opts),
	)
	dir := filepath.Dir(scriptPath)
	readFile := func(p string) ([]byte, error) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		return os.ReadFile(p)
	}
	if err := s.RunScript(bytes.NewReader(script), readFile); err != nil {
		return err
	}
	h := s.History()
	return writeIndented(w, ReplayResult{
		Elements: s.Elements(),
		Viewport: s.Viewport(),
		History:  h.Descriptions()[:h.Cursor()],
	})
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
