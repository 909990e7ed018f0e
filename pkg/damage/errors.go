package damage

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes reported to callers outside the codec.
const (
	CodeFormat     = "FORMAT_ERROR"
	CodeMissing    = "MISSING_FIELDS"
	CodeValidation = "VALIDATION_ERROR"
	CodeType       = "TYPE_ERROR"
)

// FormatError reports a structural violation of the wire format: too few
// lines, a malformed header line, or a missing sentinel.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "damage: format: " + e.Reason
}

// MissingFieldError lists mandatory keys absent from a field map, sorted.
type MissingFieldError struct {
	Keys []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("damage: missing mandatory keys: [%s]", strings.Join(e.Keys, ", "))
}

// ValidationError reports a present field whose value breaks its rule.
type ValidationError struct {
	Field      string
	Value      any
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("damage: %s: invalid value %q (%s)", e.Field, fmt.Sprint(e.Value), e.Constraint)
}

// TypeError reports a field value of the wrong primitive type.
type TypeError struct {
	Field string
	Want  string
	Got   any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("damage: %s must be a %s, got %T", e.Field, e.Want, e.Got)
}

func invalid(field string, value any, constraint string) error {
	return &ValidationError{Field: field, Value: value, Constraint: constraint}
}

// ErrorCode maps a codec failure anywhere in err's chain to its code. It
// reports false for errors the codec did not produce.
func ErrorCode(err error) (string, bool) {
	var (
		formatErr  *FormatError
		missingErr *MissingFieldError
		validErr   *ValidationError
		typeErr    *TypeError
	)
	switch {
	case errors.As(err, &formatErr):
		return CodeFormat, true
	case errors.As(err, &missingErr):
		return CodeMissing, true
	case errors.As(err, &validErr):
		return CodeValidation, true
	case errors.As(err, &typeErr):
		return CodeType, true
	}
	return "", false
}
