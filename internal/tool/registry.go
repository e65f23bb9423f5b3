package tool

import (
	"fmt"

	"github.com/starford/raido/internal/board"
)

// Factory creates a fresh tool instance.
type Factory func() Tool

// Registry maps tool names to factories. Each editing session owns its
// own registry.
type Registry struct {
	factories map[string]Factory
	order     []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding every built-in tool.
func DefaultRegistry(opts Options) *Registry {
	r := NewRegistry()
	shapes := []struct {
		name string
		kind board.Type
	}{
		{NameRectangle, board.TypeRectangle},
		{NameCircle, board.TypeCircle},
		{NameDiamond, board.TypeDiamond},
		{NameLine, board.TypeLine},
		{NameArrow, board.TypeArrow},
	}
	r.MustRegister(NameSelect, func() Tool { return newSelectTool(opts) })
	for _, s := range shapes {
		r.MustRegister(s.name, func() Tool { return newShapeTool(s.name, s.kind, opts) })
	}
	r.MustRegister(NameFreehand, func() Tool { return newFreehandTool(opts) })
	r.MustRegister(NameText, func() Tool { return newTextTool(opts) })
	r.MustRegister(NamePan, func() Tool { return newPanTool(opts) })
	r.MustRegister(NameEraser, func() Tool { return newEraserTool(opts) })
	return r
}

// Register adds a factory under name.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("tool: register: empty name or nil factory")
	}
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("tool: register %q: already registered", name)
	}
	r.factories[name] = f
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Get creates the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	f, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// Names lists registered tools in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
