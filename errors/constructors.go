package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *QualityError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *QualityError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// InvalidArgument reports a required argument that was nil or empty.
func InvalidArgument(name string) *QualityError {
	return New(ErrCodeInvalidArgument, fmt.Sprintf("argument '%s' is required", name)).
		WithDetail("argument", name)
}

// ContractViolation reports a caller bug, such as attaching a section twice.
func ContractViolation(message string) *QualityError {
	return New(ErrCodeContractViolation, message)
}

// BindingInvalid creates an error for a binding record that cannot be decoded or is incomplete.
func BindingInvalid(path, reason string) *QualityError {
	return New(ErrCodeBindingInvalid, fmt.Sprintf("invalid binding: %s", reason)).
		WithDetail("path", path)
}

// BindingRead wraps an I/O failure while reading a binding record.
func BindingRead(path string, err error) *QualityError {
	return Wrap(err, ErrCodeBindingRead, "failed to read binding").
		WithDetail("path", path)
}

// BindingWrite wraps an I/O failure while persisting a binding record.
func BindingWrite(path string, err error) *QualityError {
	return Wrap(err, ErrCodeBindingWrite, "failed to write binding").
		WithDetail("path", path)
}

// Critical marks err as unrecoverable for the host.
func Critical(err error) *QualityError {
	return Wrap(err, ErrCodeCritical, "critical host failure")
}

// WorkflowAborted reports that a workflow was cancelled before it finished.
func WorkflowAborted(name string) *QualityError {
	return New(ErrCodeWorkflowAborted, fmt.Sprintf("workflow '%s' aborted", name)).
		WithDetail("workflow", name)
}
