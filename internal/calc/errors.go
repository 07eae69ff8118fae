package calc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no calculator has the requested id.
	ErrNotFound = errors.New("calculator not found")

	// ErrConflict is returned when a calculator id is registered twice.
	ErrConflict = errors.New("calculator already registered")
)

// InvalidInputError reports a bad, missing or out-of-range input field.
// It is user-correctable; handlers map it to a 400 response.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalidInput(field, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidInput reports whether err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var iie *InvalidInputError
	return errors.As(err, &iie)
}
