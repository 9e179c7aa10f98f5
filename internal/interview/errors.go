package interview

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is returned when a command is not legal in the current phase.
var ErrInvalidTransition = errors.New("invalid interview transition")

// ValidationError reports an input that breaks a length limit or is not one
// of the allowed choices.
type ValidationError struct {
	Field   string
	Value   string
	Limit   int
	Allowed []string
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.Allowed) > 0:
		return fmt.Sprintf("%s %q is not one of: %s", e.Field, e.Value, strings.Join(e.Allowed, ", "))
	case e.Limit > 0:
		return fmt.Sprintf("%s exceeds %d characters", e.Field, e.Limit)
	default:
		return fmt.Sprintf("%s must not be empty", e.Field)
	}
}

func invalidTransition(command string, from Phase) error {
	return fmt.Errorf("%w: %s is not allowed in phase %s", ErrInvalidTransition, command, from)
}
