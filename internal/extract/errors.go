package extract

import (
	"errors"
	"fmt"
)

// ErrMissingField marks a record that lacks a field the transform needs.
var ErrMissingField = errors.New("missing required field")

// ParseError reports malformed or incomplete input. Line is the 1-based line
// number within Path, or 0 when the whole file is at fault.
type ParseError struct {
	Path  string
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Field != "" {
		return fmt.Sprintf("parse %s: field %q: %v", loc, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", loc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func missing(path string, line int, field string) *ParseError {
	return &ParseError{Path: path, Line: line, Field: field, Err: ErrMissingField}
}
