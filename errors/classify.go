package errors

import (
	stderrors "errors"
	"fmt"
)

// criticalError is implemented by errors that know they must never be swallowed.
type criticalError interface {
	Critical() bool
}

// IsCritical reports whether err must propagate to the host unchanged.
//
// An error is critical when any error in its chain is coded ErrCodeCritical
// or implements Critical() bool and returns true. Recovered runtime errors
// (nil dereference, index out of range and similar) are not critical: they
// usually come from decoding a corrupt record. Stack exhaustion and out of
// memory are fatal in Go and never reach a recover.
func IsCritical(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrCodeCritical) {
		return true
	}

	var cErr criticalError
	if stderrors.As(err, &cErr) {
		return cErr.Critical()
	}
	return false
}

// IsContractViolation reports whether err signals a caller bug.
func IsContractViolation(err error) bool {
	return Is(err, ErrCodeContractViolation) || Is(err, ErrCodeInvalidArgument)
}

// FromPanic converts a recovered panic value into an error.
func FromPanic(r interface{}) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
