package diagram

import (
	"errors"
	"fmt"
)

// ErrUndetected is matched by the error returned when no grammar keyword
// can be found and no kind was requested.
var ErrUndetected = errors.New("unable to detect diagram type")

// ParseError describes a statement that could not be interpreted. Line is
// 1-based; zero means the error concerns the whole input.
type ParseError struct {
	Line      int    `json:"line"`
	Statement string `json:"statement,omitempty"`
	Reason    string `json:"reason"`

	err error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error { return e.err }

func undetectedError() *ParseError {
	return &ParseError{
		Reason: ErrUndetected.Error() + ": expected one of flowchart, graph, sequenceDiagram, classDiagram, stateDiagram, erDiagram",
		err:    ErrUndetected,
	}
}
