package session

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/starford/raido/internal/board"
	"github.com/starford/raido/internal/tool"
)

// RunScript drives the session from a gesture script, one command per
// line. Blank lines and lines starting with # are skipped.
//
//	tool <name>          activate a tool
//	down|move|up <x> <y> pointer event in screen coordinates
//	key <name>           key press; Shift+<name> sets shift
//	type <text>          one key press per rune
//	undo | redo
//	pan <dx> <dy>        pan by a screen delta
//	zoom <f> <x> <y>     zoom by f around a screen point
//	diagram <path>       compile a DSL file onto the board
//	clear                remove every element
//
// readFile loads diagram sources; it may be nil when the script has no
// diagram commands.
func (s *Session) RunScript(r io.Reader, readFile func(path string) ([]byte, error)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.runCommand(line, readFile); err != nil {
			return fmt.Errorf("session: script line %d: %w", n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("session: read script: %w", err)
	}
	return nil
}

func (s *Session) runCommand(line string, readFile func(string) ([]byte, error)) error {
	name, rest, _ := strings.Cut(line, " ")
	args := strings.Fields(rest)

	switch name {
	case "tool":
		if err := want(name, args, 1); err != nil {
			return err
		}
		return s.Activate(args[0])

	case "down", "move", "up":
		nums, err := floats(name, args, 2)
		if err != nil {
			return err
		}
		p := board.Point{X: nums[0], Y: nums[1]}
		switch name {
		case "down":
			return s.PointerDown(p)
		case "move":
			return s.PointerMove(p)
		}
		return s.PointerUp(p)

	case "key":
		if err := want(name, args, 1); err != nil {
			return err
		}
		ev := tool.KeyEvent{Key: args[0]}
		if k, ok := strings.CutPrefix(args[0], "Shift+"); ok {
			ev = tool.KeyEvent{Key: k, Shift: true}
		}
		_, err := s.Key(ev)
		return err

	case "type":
		for _, r := range rest {
			if _, err := s.Key(tool.KeyEvent{Key: string(r)}); err != nil {
				return err
			}
		}
		return nil

	case "undo":
		_, err := s.Undo()
		return err

	case "redo":
		_, err := s.Redo()
		return err

	case "pan":
		nums, err := floats(name, args, 2)
		if err != nil {
			return err
		}
		s.Pan(nums[0], nums[1])
		return nil

	case "zoom":
		nums, err := floats(name, args, 3)
		if err != nil {
			return err
		}
		s.ZoomAt(nums[0], board.Point{X: nums[1], Y: nums[2]})
		return nil

	case "diagram":
		if err := want(name, args, 1); err != nil {
			return err
		}
		if readFile == nil {
			return fmt.Errorf("diagram: no file reader")
		}
		data, err := readFile(args[0])
		if err != nil {
			return fmt.Errorf("diagram: %w", err)
		}
		_, err = s.LoadDiagram(string(data))
		return err

	case "clear":
		return s.ReplaceAll(nil, "clear board")
	}
	return fmt.Errorf("unknown command %q", name)
}

func want(name string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: want %d arguments, got %d", name, n, len(args))
	}
	return nil
}

func floats(name string, args []string, n int) ([]float64, error) {
	if err := want(name, args, n); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}
