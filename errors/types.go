package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Binding errors
	ErrCodeBindingNotFound ErrorCode = "BINDING_NOT_FOUND"
	ErrCodeBindingInvalid  ErrorCode = "BINDING_INVALID"
	ErrCodeBindingRead     ErrorCode = "BINDING_READ"
	ErrCodeBindingWrite    ErrorCode = "BINDING_WRITE"

	// Workflow errors
	ErrCodeWorkflowAborted ErrorCode = "WORKFLOW_ABORTED"

	// Caller and host errors
	ErrCodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
	ErrCodeCritical          ErrorCode = "CRITICAL"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// QualityError represents a structured error with context
type QualityError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface. The binding location and project
// key are appended when the message does not already name them, so a log
// line identifies the record without the details map:
//
//	BINDING_READ: failed to read binding at /ws/.qlink/binding.yml: permission denied
func (e *QualityError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if path, ok := e.detailString("path"); ok && !strings.Contains(e.Message, path) {
		b.WriteString(" at ")
		b.WriteString(path)
	}
	if key, ok := e.detailString("project_key"); ok && !strings.Contains(e.Message, key) {
		fmt.Fprintf(&b, " (project %s)", key)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *QualityError) detailString(key string) (string, bool) {
	v, ok := e.Details[key]
	if !ok {
		return "", false
	}
	s := fmt.Sprint(v)
	return s, s != ""
}

// Unwrap implements the errors.Unwrap interface
func (e *QualityError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *QualityError) WithDetail(key string, value interface{}) *QualityError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// errorReport is the JSON form of a QualityError.
type errorReport struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Critical bool                   `json:"critical"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Causes   []string               `json:"causes,omitempty"`
}

// ToJSON renders the error for verbose output. Causes lists the messages of
// the wrapped chain outermost first, and Critical reports whether the host
// would treat the error as unrecoverable.
func (e *QualityError) ToJSON() string {
	report := errorReport{
		Code:     e.Code,
		Message:  e.Message,
		Critical: IsCritical(e),
		Details:  e.Details,
	}
	for cause := e.Cause; cause != nil; {
		if qErr, ok := cause.(*QualityError); ok {
			report.Causes = append(report.Causes, string(qErr.Code)+": "+qErr.Message)
			if len(qErr.Details) > 0 {
				report.Details = mergeDetails(report.Details, qErr.Details)
			}
		} else {
			report.Causes = append(report.Causes, cause.Error())
		}
		u, ok := cause.(interface{ Unwrap() error })
		if !ok {
			break
		}
		cause = u.Unwrap()
	}
	data, _ := json.MarshalIndent(report, "", "  ")
	return string(data)
}

// mergeDetails returns outer with the keys of inner it does not set.
func mergeDetails(outer, inner map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(outer)+len(inner))
	for k, v := range inner {
		merged[k] = v
	}
	for k, v := range outer {
		merged[k] = v
	}
	return merged
}

// New creates a new QualityError
func New(code ErrorCode, message string) *QualityError {
	return &QualityError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a QualityError
func Wrap(err error, code ErrorCode, message string) *QualityError {
	return &QualityError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific QualityError code.
// The whole chain is searched, so a coded error wrapped by fmt.Errorf still matches.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	if qErr, ok := err.(*QualityError); ok && qErr.Code == code {
		return true
	}

	if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
		return Is(unwrapper.Unwrap(), code)
	}
	return false
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	qErr, ok := err.(*QualityError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return qErr.Code
}
