package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrElementSize     = errors.New("unsupported element size")
	ErrInvalidTopology = errors.New("invalid topology")
	ErrShapeMismatch   = errors.New("parameter shape does not match topology")
	ErrTooLarge        = errors.New("model exceeds maximum size")
	ErrClosed          = errors.New("file is closed")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Field   string // "neurons", "weights" or "biases"
	Index   int    // Layer or transition index, -1 when not applicable
	Err     error  // One of the sentinel errors above
	Details string // Human-readable description
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s[%d]: %v: %s", e.Field, e.Index, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v: %s", e.Field, e.Err, e.Details)
}

// Unwrap returns the sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
