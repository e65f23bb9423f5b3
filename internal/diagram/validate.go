package diagram

import "fmt"

// Result is the outcome of Validate. Errors are human-readable and safe to
// show to end users; Warnings list statements the parser skipped.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings,omitempty"`
	Kind     Kind     `json:"kind,omitempty"`
}

type validateConfig struct {
	lenient bool
	kind    Kind
}

// ValidateOption configures Validate.
type ValidateOption func(*validateConfig)

// WithLenientReferences only requires connection endpoints to exist in the
// node set. By default an endpoint must be an explicitly declared node, so
// a target that only appears as a bare reference is reported.
func WithLenientReferences() ValidateOption {
	return func(c *validateConfig) { c.lenient = true }
}

// WithStrictReferences selects strict checking when strict is true and
// lenient checking otherwise.
func WithStrictReferences(strict bool) ValidateOption {
	return func(c *validateConfig) { c.lenient = !strict }
}

// WithKind skips detection and validates text with the given grammar.
func WithKind(k Kind) ValidateOption {
	return func(c *validateConfig) { c.kind = k }
}

// Validate detects, parses and checks text. All findings are collected.
func Validate(text string, opts ...ValidateOption) Result {
	var cfg validateConfig
	for _, o := range opts {
		o(&cfg)
	}
	ast, err := ParseKind(text, cfg.kind)
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}
	return ValidateAST(ast, opts...)
}

// ValidateAST checks an already parsed diagram.
func ValidateAST(ast *AST, opts ...ValidateOption) Result {
	var cfg validateConfig
	for _, o := range opts {
		o(&cfg)
	}

	res := Result{Errors: []string{}, Kind: ast.Kind}
	for _, s := range ast.Skipped {
		res.Warnings = append(res.Warnings, s.Error())
	}
	if len(ast.Nodes) == 0 {
		res.Errors = append(res.Errors, "diagram has no nodes")
	}

	idx := ast.NodeIndex()
	check := func(i int, end, id string) {
		if IsMarker(id) {
			return
		}
		pos, ok := idx[id]
		switch {
		case !ok:
			res.Errors = append(res.Errors, fmt.Sprintf("connection %d: %s %q does not exist", i, end, id))
		case !cfg.lenient && !ast.Nodes[pos].Declared:
			res.Errors = append(res.Errors, fmt.Sprintf("connection %d: %s %q is not a declared node", i, end, id))
		}
	}
	for i, c := range ast.Connections {
		if IsMarker(c.From) && IsMarker(c.To) {
			res.Errors = append(res.Errors, fmt.Sprintf("connection %d: both endpoints are the start/end marker", i+1))
			continue
		}
		check(i+1, "source", c.From)
		check(i+1, "target", c.To)
	}

	res.Valid = len(res.Errors) == 0
	return res
}
