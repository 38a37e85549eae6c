package countdown

import (
	"errors"
	"fmt"
)

const (
	// MinDays and MaxDays bound the accepted day count.
	MinDays = 1
	MaxDays = 365
)

var (
	ErrInvalidState       = errors.New("countdown: operation not allowed in current state")
	ErrNoIdentity         = errors.New("countdown: identity not set")
	ErrIdentityAlreadySet = errors.New("countdown: identity already set")
	ErrClosed             = errors.New("countdown: controller closed")
)

// ValidationError reports a rejected user input.
type ValidationError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %d: %s", e.Field, e.Value, e.Reason)
}

// ValidateDays checks that days is within [MinDays, MaxDays].
func ValidateDays(days int) error {
	if days < MinDays || days > MaxDays {
		return &ValidationError{
			Field:  "days",
			Value:  days,
			Reason: fmt.Sprintf("must be between %d and %d", MinDays, MaxDays),
		}
	}
	return nil
}
