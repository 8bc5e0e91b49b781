package spcall

import (
	"github.com/pkg/errors"
)

// ErrNotConfigured is returned by the global API before Configure is called.
var ErrNotConfigured = errors.New("spcall: default context is not configured")

// InvocationError is the single failure surfaced by every call. Its message
// is the message of the underlying error.
type InvocationError struct {
	Procedure string
	Err       error
}

func (e *InvocationError) Error() string {
	return e.Err.Error()
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Cause lets errors.Cause see through the invocation failure.
func (e *InvocationError) Cause() error { return e.Err }

func invocationError(procedure string, err error) error {
	if err == nil {
		return nil
	}
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie
	}
	return &InvocationError{Procedure: procedure, Err: err}
}
