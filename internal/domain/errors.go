package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks a row that could not be normalized. The row is
	// dropped; the rest of the batch continues.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMissingColumn marks an input table lacking a required column. It is
	// fatal to the whole run.
	ErrMissingColumn = errors.New("missing required column")

	// ErrNoTypicalPeriod means the reference-periods table has no usable
	// entry for a country.
	ErrNoTypicalPeriod = errors.New("no typical period for country")

	// ErrEmptyMonthSet means one side of an overlap comparison has no months.
	ErrEmptyMonthSet = errors.New("empty month set")

	// ErrUnknownMonth is returned when a month list contains a token that is
	// not an English month name or abbreviation.
	ErrUnknownMonth = errors.New("unknown month name")
)

// RecordError describes why a single input row was rejected.
type RecordError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *RecordError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, ErrMalformedRecord)
	}
	return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

// Unwrap exposes the underlying parse error.
func (e *RecordError) Unwrap() error { return e.Err }

// Is reports every RecordError as an ErrMalformedRecord.
func (e *RecordError) Is(target error) bool { return target == ErrMalformedRecord }
