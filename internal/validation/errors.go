package validation

import "fmt"

// Kind is the closed validation error taxonomy. Every failure a
// validator can produce maps to exactly one kind so reports can
// histogram them.
type Kind string

const (
	KindInconsistentValue Kind = "InconsistentValue"
	KindOutOfRange        Kind = "OutOfRange"
	KindInvalidValue      Kind = "InvalidValue"
	KindMissingData       Kind = "MissingData"
	KindOutOfOrder        Kind = "OutOfOrder"
	KindDuplicateEntry    Kind = "DuplicateEntry"
	KindLargeGap          Kind = "LargeGap"
	KindTimeSeriesOverlap Kind = "TimeSeriesOverlap"
	KindCustomRuleFailed  Kind = "CustomRuleFailed"
	KindSystemError       Kind = "SystemError"
)

// Error is a single validation failure, carrying enough structure for
// the report's error-kind histogram and detailed-error log.
type Error struct {
	Kind      Kind
	Field     string
	Message   string
	Line      int
	Timestamp *int64
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs a validation Error of the given kind.
func NewError(kind Kind, field, message string) *Error {
	return &Error{Kind: kind, Field: field, Message: message}
}

// WithTimestamp attaches the offending record timestamp, used by the
// duplicate and overlap checks.
func (e *Error) WithTimestamp(ts int64) *Error {
	e.Timestamp = &ts
	return e
}

// WithCause attaches an underlying cause, used for SystemError.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// Errors is an ordered collection of Error produced by one validator
// run, in the order the checks produced them. The validators leave
// Error.Line unset.
type Errors []*Error

func (es Errors) Count() int { return len(es) }
