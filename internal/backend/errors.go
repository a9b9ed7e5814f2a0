package backend

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the class of errors caused by the caller's setup rather
// than the device. Match it with errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

// Common errors.
var (
	ErrInvalidLength   = fmt.Errorf("%w: buffer length must be positive", ErrConfiguration)
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrLengthMismatch  = errors.New("host and device lengths differ")
	ErrUnknownKernel   = errors.New("unknown kernel")
	ErrNotCompiled     = errors.New("kernel not compiled")
	ErrBadArguments    = errors.New("kernel arguments do not match signature")
	ErrForeignBuffer   = errors.New("allocation belongs to another context")
	ErrReleased        = errors.New("context released")
)

// DeviceError reports an accelerator failure with the stage and the buffer or
// kernel involved. Device errors are not recoverable.
type DeviceError struct {
	Stage  string // "allocate", "compile", "dispatch", "write", "read", "finish"
	Target string // buffer label or kernel name
	Err    error
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("device %s %q: %v", e.Stage, e.Target, e.Err)
	}
	return fmt.Sprintf("device %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Fail wraps err in a *DeviceError unless it already is one.
func Fail(stage, target string, err error) error {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return err
	}
	return &DeviceError{Stage: stage, Target: target, Err: err}
}
