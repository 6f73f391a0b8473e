package validation

import (
	"fmt"
	"time"
)

// FieldError represents a configuration field that failed validation.
type FieldError struct {
	Field     string    // Configuration key that was rejected
	Value     string    // Offending value as the user supplied it
	Reason    string    // Human-readable reason for rejection
	Timestamp time.Time // When the validation error occurred
}

// Error implements the error interface.
//
// Format: "invalid configuration: {Field}: {Reason} (value: {Value})"
func (e *FieldError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid configuration: %s: %s (value: %s)",
			e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NewFieldError creates a FieldError for the given key and value.
func NewFieldError(field, value, reason string) *FieldError {
	return &FieldError{
		Field:     field,
		Value:     value,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}
}

// NonNegative validates that an already-parsed numeric field is >= 0.
func NonNegative(field string, value int64) error {
	if value < 0 {
		return NewFieldError(field, fmt.Sprintf("%d", value), "must be a non-negative integer")
	}
	return nil
}
