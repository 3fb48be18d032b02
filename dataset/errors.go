/*
errors.go - Error taxonomy for tabular inputs

PURPOSE:
  Defines the sentinel errors and structured error types raised while
  reading or transforming datasets. Callers branch on the sentinels with
  errors.Is and recover detail (which column, which row) with errors.As.

ERROR CATEGORIES:
  1. Missing column   - a required column is absent from the input
  2. Bad date         - a date cell does not parse day-first
  3. Schema mismatch  - row/column shapes disagree (concat, append)

All three are data errors: the caller's input is at fault, not the
system. IsDataError reports that distinction for HTTP mapping.

SEE ALSO:
  - dataset.go: where SchemaError and MissingColumnError are raised
  - dates.go:   where DateFormatError is raised
*/
package dataset

import (
	"errors"
	"fmt"
)

// ===== SENTINEL ERRORS =====

var (
	// ErrColumnMissing indicates a required column is absent from the input.
	ErrColumnMissing = errors.New("required column missing")

	// ErrBadDate indicates a date cell that does not parse as dd/mm/yyyy.
	ErrBadDate = errors.New("unparseable date")

	// ErrSchemaMismatch indicates rows and columns that do not line up.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// ===== STRUCTURED ERRORS =====

// MissingColumnError reports which required column the input lacks.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q missing from input", e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrColumnMissing }

// DateFormatError reports the exact cell that failed to parse. Row is the
// zero-based data row index, header excluded, so operators can find the
// offending line in the source sheet.
type DateFormatError struct {
	Column string
	Row    int
	Value  string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot parse %q as dd/mm/yyyy", e.Column, e.Row, e.Value)
}

func (e *DateFormatError) Unwrap() error { return ErrBadDate }

// SchemaError reports a shape disagreement between rows and columns.
type SchemaError struct {
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch: %s", e.Detail)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

// ===== CLASSIFICATION =====

// IsDataError reports whether err is caused by malformed caller input
// rather than a system failure. The API layer maps these to 400s.
func IsDataError(err error) bool {
	return errors.Is(err, ErrColumnMissing) ||
		errors.Is(err, ErrBadDate) ||
		errors.Is(err, ErrSchemaMismatch)
}
