package domain

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation signals a data-integrity defect in a record the core
// was given (e.g. a dose that is not part of its medication's schedule).
// It is surfaced to the caller but scoped to the single record being processed.
var ErrInvariantViolation = errors.New("invariant violation")

// ConfigError is raised when the reference-range source is unreadable,
// malformed, or violates the range invariants. Fatal at load time.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("reference config error: %v", e.Err)
	}
	return fmt.Sprintf("reference config error (%s): %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
