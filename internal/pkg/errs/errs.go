package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"callrelay/internal/pkg/logx"
)

// CustomError carries a business code, a client-facing message and the HTTP status
// used when the error is returned over HTTP.
type CustomError struct {
	Code    int
	Message string
	Status  int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Is reports whether target is a CustomError with the same code.
func (e *CustomError) Is(target error) bool {
	var other *CustomError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// NewError builds a *CustomError from a registered code. details are printf arguments
// for messages containing verbs; for ErrUnknown the first detail may be the underlying
// error, which is logged. Unknown codes collapse to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("error code %d not registered", code),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusBadRequest
	}

	switch {
	case len(details) == 0:
	case code == ErrUnknown:
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Details provided for error without formatting verbs. Details ignored.", "code", code)
	}

	return &customErr
}

// From converts any error into a *CustomError, defaulting to ErrUnknown.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	return NewError(ErrUnknown, err)
}
