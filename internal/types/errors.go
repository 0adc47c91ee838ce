package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure of a conversion run wraps exactly one of them.
var (
	ErrConfig             = errors.New("configuration error")
	ErrUnknownField       = errors.New("unknown field")
	ErrExpressionSyntax   = errors.New("expression syntax error")
	ErrArithmetic         = errors.New("arithmetic error")
	ErrNumericParse       = errors.New("numeric parse error")
	ErrDateParse          = errors.New("date parse error")
	ErrUnmappedVocabulary = errors.New("unmapped vocabulary")
	ErrIO                 = errors.New("i/o error")
	ErrCancelled          = errors.New("cancelled by operator")
)

// RowError reports a failure tied to one source row.
type RowError struct {
	// Line is the source line number of the offending row.
	Line int

	// Field is the target field being computed, if any.
	Field string

	// Rule names the rule table involved (e.g. "InvertRules"), if any.
	Rule string

	// Value is the offending raw value, if any.
	Value string

	// Err is the underlying error; it wraps one of the error kinds.
	Err error
}

func (e *RowError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "line %d", e.Line)
	if e.Rule != "" {
		fmt.Fprintf(&b, ", %s", e.Rule)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ", field '%s'", e.Field)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *RowError) Unwrap() error { return e.Err }

// ConfigErrorf builds an error of kind ErrConfig.
func ConfigErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
