package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/qualitylink/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message for err based on its code and returns err
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	qErr := asQualityError(err)

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "❌ Configuration not found: %v\n", detail(qErr, "path"))

	case errors.ErrCodeConfigInvalid:
		fmt.Fprintf(h.Out, "❌ %v\n", err)
		fmt.Fprintf(h.Out, "Check qlink.yml against the documented settings.\n")

	case errors.ErrCodeBindingNotFound:
		fmt.Fprintf(h.Out, "❌ This workspace is not bound. Run 'qlink bind --project KEY --server URL'.\n")

	case errors.ErrCodeBindingInvalid:
		fmt.Fprintf(h.Out, "❌ %v\n", err)
		fmt.Fprintf(h.Out, "Fix it or run 'qlink unbind' to start over.\n")

	case errors.ErrCodeBindingRead, errors.ErrCodeBindingWrite:
		fmt.Fprintf(h.Out, "❌ %v\n", err)

	case errors.ErrCodeInvalidArgument:
		fmt.Fprintf(h.Out, "❌ %v\n", err)

	default:
		fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
	}

	if h.Verbose && qErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", qErr.ToJSON())
	}
	return err
}

func asQualityError(err error) *errors.QualityError {
	for err != nil {
		if qErr, ok := err.(*errors.QualityError); ok {
			return qErr
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

func detail(qErr *errors.QualityError, key string) interface{} {
	if qErr == nil || qErr.Details == nil {
		return nil
	}
	return qErr.Details[key]
}
