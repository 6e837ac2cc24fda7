package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports malformed or incomplete profile inputs.
	ErrConfiguration = errors.New("invalid soil profile configuration")
	// ErrAlignment reports a date or depth key missing from a companion mapping.
	ErrAlignment = errors.New("key alignment")
	// ErrDepthRange reports a maximum root depth beyond the deepest layer.
	ErrDepthRange = errors.New("depth out of profile range")
	// ErrParse reports persisted content that does not match the file layout.
	ErrParse = errors.New("parse error")
	// ErrNotFound reports a referenced file that does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrDivideByZero reports TAW == RAW when deriving ObsKs.
	ErrDivideByZero = errors.New("division by zero")
)

// ParseError locates a layout problem in persisted text. Line is 1-based;
// zero means the problem is not tied to a single line.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", loc, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrParse }
