package parser

import (
	"fmt"

	"grimm.is/netgen/internal/netdef"
)

// ReadError reports a source or directory that could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError reports malformed content. Line and Column are 1-based and zero
// when the position is unknown.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConflictError reports a definition whose kind disagrees with an earlier
// fragment of the same id.
type ConflictError struct {
	Path     string
	Line     int
	Column   int
	Conflict *netdef.KindConflict
}

func (e *ConflictError) Error() string {
	if e.Path == "" {
		return e.Conflict.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Conflict)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Conflict)
}

func (e *ConflictError) Unwrap() error { return e.Conflict }
