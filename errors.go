package geostat

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrFitFailure     = errors.New("variogram fit failed")
	ErrSingularSystem = errors.New("singular kriging system")
	ErrParse          = errors.New("parse error")
)

// ParseError reports a value that could not be read from tabular input.
// Row is 1-based over data rows; 0 means the header.
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("parse error: header: column %q: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("parse error: row %d: column %q: value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func fitFailure(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFitFailure, fmt.Sprintf(format, args...))
}
