// internal/domain/dataset/errors.go

package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown dataset IDs
	ErrNotFound = errors.New("dataset not found")

	// ErrNegativeLimit is returned when a top-N count is below zero
	ErrNegativeLimit = errors.New("top-n limit must not be negative")
)

// LoadError reports that an uploaded file could not be decoded at all
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load failed: %s: %v", e.Reason, e.Err)
	}
	return "load failed: " + e.Reason
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ParseError describes a row-level problem that was recovered from
type ParseError struct {
	Line   int    `json:"line"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (e ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("line %d: column %s: %s", e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// InvalidColumnError is returned when ranking on a column that is not a
// numeric engagement column of the table
type InvalidColumnError struct {
	Column Column
	Kind   Kind
}

func (e *InvalidColumnError) Error() string {
	return fmt.Sprintf("column %q is not a rankable column of %s tables", e.Column, e.Kind)
}
