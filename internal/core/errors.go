package core

// errors.go defines the error taxonomy for the subsystem.
//
// Validation errors (unsupported format, oversized file, missing or
// non-numeric columns) are caller-input errors: their messages are written
// to be shown to users directly. ComputationError is an internal failure
// and carries the underlying cause for logging only; callers should surface
// a generic message. ErrNotFound deliberately covers "never existed",
// "expired", and "evicted" uniformly so that callers cannot tell which.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a dataset or result identifier does not
// resolve to a live entry, for any reason.
var ErrNotFound = errors.New("not found or expired")

// ErrEmptyFile is returned for zero-length uploads.
var ErrEmptyFile = errors.New("uploaded file is empty")

// ErrNoDataRows is returned when a file parses but holds no data rows.
var ErrNoDataRows = errors.New("uploaded file has no data rows to analyze")

// ErrNoColumns is returned when a statistics request selects no columns.
var ErrNoColumns = errors.New("select at least one column to analyze")

// UnsupportedFormatError is returned before any parsing attempt when the
// uploaded file's extension is not on the allow-list.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q: use .csv, .xlsx, or .xls", e.Extension)
}

// FileTooLargeError is returned before full decoding when an upload exceeds
// the configured size limit.
type FileTooLargeError struct {
	Size  int64 // bytes observed or declared; 0 if unknown
	Limit int64 // configured limit in bytes
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file is too large: the maximum size is %d MB", e.Limit>>20)
}

// ParseError wraps a decoder failure for a supported format.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "could not read the uploaded file: verify the file format and try again"
}

func (e *ParseError) Unwrap() error { return e.Err }

// ColumnNotFoundError names the first requested column that does not exist
// in the dataset.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q is not present in the uploaded data", e.Column)
}

// NonNumericColumnError carries every requested column that is not
// numeric-typed. The request is rejected in full; no partial result exists.
type NonNumericColumnError struct {
	Columns []string
}

func (e *NonNumericColumnError) Error() string {
	return "these selected columns contain no numeric values: " + strings.Join(e.Columns, ", ")
}

// ComputationError is an opaque statistics engine failure. The cause is for
// logs; users get a generic message.
type ComputationError struct {
	Err error
}

func (e *ComputationError) Error() string {
	return "statistics engine could not generate a summary for the selected columns"
}

func (e *ComputationError) Unwrap() error { return e.Err }

// IsUserInput reports whether an error is a caller-input error whose message
// is safe and useful to show directly to the user.
func IsUserInput(err error) bool {
	var (
		unsupported *UnsupportedFormatError
		tooLarge    *FileTooLargeError
		parse       *ParseError
		notFound    *ColumnNotFoundError
		nonNumeric  *NonNumericColumnError
	)
	switch {
	case errors.Is(err, ErrEmptyFile),
		errors.Is(err, ErrNoDataRows),
		errors.Is(err, ErrNoColumns),
		errors.As(err, &unsupported),
		errors.As(err, &tooLarge),
		errors.As(err, &parse),
		errors.As(err, &notFound),
		errors.As(err, &nonNumeric):
		return true
	}
	return false
}
