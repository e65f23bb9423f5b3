// Package layout assigns deterministic positions to parsed diagrams.
//
// Flowcharts and state diagrams use a leveled layout, sequence diagrams a
// lane layout and class/ER diagrams a grid. All algorithms iterate slices
// in node order, so the same AST and options always give the same result.
package layout

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/diagram"
)

// ErrUnsupportedKind is returned for ASTs whose kind has no layout.
var ErrUnsupportedKind = errors.New("layout: unsupported diagram kind")

// Position is the top-left corner of a node box.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the extent of a node box.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Lifeline is the vertical guide below a sequence participant.
type Lifeline struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Result holds the geometry computed for one AST.
type Result struct {
	Kind      diagram.Kind        `json:"kind"`
	Positions map[string]Position `json:"positions"`
	Sizes     map[string]Size     `json:"sizes"`
	// Levels is set by the leveled layout only.
	Levels map[string]int `json:"levels,omitempty"`
	// Messages holds the y coordinate of each connection slot of a
	// sequence diagram, in connection order.
	Messages  []float64  `json:"messages,omitempty"`
	Lifelines []Lifeline `json:"lifelines,omitempty"`
	Width     float64    `json:"width"`
	Height    float64    `json:"height"`
}

// Box returns the position and size of node id.
func (r *Result) Box(id string) (Position, Size, bool) {
	p, ok := r.Positions[id]
	if !ok {
		return Position{}, Size{}, false
	}
	return p, r.Sizes[id], true
}

// Options controls spacing and box sizing.
type Options struct {
	NodeWidth  float64 `yaml:"node_width" json:"node_width"`
	NodeHeight float64 `yaml:"node_height" json:"node_height"`
	// CharWidth widens boxes whose text does not fit NodeWidth.
	CharWidth         float64  `yaml:"char_width" json:"char_width"`
	Padding           float64  `yaml:"padding" json:"padding"`
	HorizontalSpacing float64  `yaml:"horizontal_spacing" json:"horizontal_spacing"`
	VerticalSpacing   float64  `yaml:"vertical_spacing" json:"vertical_spacing"`
	Origin            Position `yaml:"origin" json:"origin"`
	LineHeight        float64  `yaml:"line_height" json:"line_height"`
	HeaderHeight      float64  `yaml:"header_height" json:"header_height"`
	MessageSpacing    float64  `yaml:"message_spacing" json:"message_spacing"`
}

// DefaultOptions returns the options used by the service.
func DefaultOptions() Options {
	return Options{
		NodeWidth:         140,
		NodeHeight:        60,
		CharWidth:         8,
		Padding:           24,
		HorizontalSpacing: 60,
		VerticalSpacing:   80,
		LineHeight:        20,
		HeaderHeight:      36,
		MessageSpacing:    50,
	}
}

// Validate validates the options.
func (o *Options) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.NodeWidth, validation.Required, validation.Min(1.0)),
		validation.Field(&o.NodeHeight, validation.Required, validation.Min(1.0)),
		validation.Field(&o.CharWidth, validation.Min(0.0)),
		validation.Field(&o.Padding, validation.Min(0.0)),
		validation.Field(&o.HorizontalSpacing, validation.Min(0.0)),
		validation.Field(&o.VerticalSpacing, validation.Min(0.0)),
		validation.Field(&o.LineHeight, validation.Required, validation.Min(1.0)),
		validation.Field(&o.HeaderHeight, validation.Min(0.0)),
		validation.Field(&o.MessageSpacing, validation.Required, validation.Min(1.0)),
	)
}

// Compute lays out ast.
func Compute(ast *diagram.AST, opts Options) (*Result, error) {
	return ComputeContext(context.Background(), ast, opts)
}

// ComputeContext is Compute with cancellation, for layouts computed off the
// editing loop. The context is checked between nodes.
func ComputeContext(ctx context.Context, ast *diagram.AST, opts Options) (*Result, error) {
	if ast == nil {
		return nil, errors.New("layout: nil diagram")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("layout: options: %w", err)
	}

	var (
		res *Result
		err error
	)
	switch ast.Kind {
	case diagram.KindFlowchart, diagram.KindState:
		res, err = leveled(ctx, ast, opts)
	case diagram.KindSequence:
		res, err = lanes(ctx, ast, opts)
	case diagram.KindClass, diagram.KindER:
		res, err = grid(ctx, ast, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, ast.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	res.Kind = ast.Kind
	res.bounds(opts.Origin)
	return res, nil
}

func newResult(n int) *Result {
	return &Result{
		Positions: make(map[string]Position, n),
		Sizes:     make(map[string]Size, n),
	}
}

func (r *Result) bounds(origin Position) {
	for id, p := range r.Positions {
		s := r.Sizes[id]
		r.Width = max(r.Width, p.X+s.Width-origin.X)
		r.Height = max(r.Height, p.Y+s.Height-origin.Y)
	}
	for _, l := range r.Lifelines {
		r.Height = max(r.Height, l.Bottom-origin.Y)
	}
}
