// Package generate turns natural-language prompts into diagram source.
// Generators are opaque: the board service only sees the DSL text they
// return, and rejects output that does not validate.
package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/diagram"
)

// ErrEmptyPrompt is returned for a prompt with no usable content.
var ErrEmptyPrompt = errors.New("generate: empty prompt")

// Generator produces diagram source for a prompt. kind may be
// diagram.KindUnknown to let the generator choose.
type Generator interface {
	Generate(ctx context.Context, prompt string, kind diagram.Kind) (string, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, prompt string, kind diagram.Kind) (string, error)

func (f Func) Generate(ctx context.Context, prompt string, kind diagram.Kind) (string, error) {
	return f(ctx, prompt, kind)
}

type checked struct {
	g    Generator
	opts []diagram.ValidateOption
}

// Checked wraps g so that output which fails validation, or whose grammar
// differs from the requested kind, is returned as an apperr.ErrInvalid error.
func Checked(g Generator, opts ...diagram.ValidateOption) Generator {
	return &checked{g: g, opts: opts}
}

func (c *checked) Generate(ctx context.Context, prompt string, kind diagram.Kind) (string, error) {
	text, err := c.g.Generate(ctx, prompt, kind)
	if err != nil {
		return "", err
	}
	res := diagram.Validate(text, c.opts...)
	if !res.Valid {
		msg := "no diagram"
		if len(res.Errors) > 0 {
			msg = res.Errors[0]
		}
		return "", fmt.Errorf("generate: invalid output: %s: %w", msg, apperr.ErrInvalid)
	}
	if kind != diagram.KindUnknown && res.Kind != kind {
		return "", fmt.Errorf("generate: output is %s, want %s: %w", res.Kind, kind, apperr.ErrInvalid)
	}
	return text, nil
}
