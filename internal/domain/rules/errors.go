package rules

import (
	"errors"
	"fmt"
)

// Common errors returned by the rule repository.
var (
	ErrRuleNotFound     = errors.New("rule not found")
	ErrVersionPublished = errors.New("rule version already published")
)

// ValidationError reports malformed rule, condition or encounter data. It is
// returned to the caller immediately and never coerced into a default.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
