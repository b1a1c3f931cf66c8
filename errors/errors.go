package errors

import (
	"fmt"
	"net/http"
)

// Stable error codes crossing the bridge boundary. The code is part of the
// message protocol: game surfaces switch on it, so values never change.
const (
	CodeInitFailed          = "INIT_FAILED"
	CodeUnauthorizedOrigin  = "UNAUTHORIZED_ORIGIN"
	CodeInvalidMessage      = "INVALID_MESSAGE"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeNotInitialized      = "NOT_INITIALIZED"
	CodeRateLimit           = "RATE_LIMIT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeAlreadySpinning     = "ALREADY_SPINNING"
	CodeSpinFailed          = "SPIN_FAILED"
	CodeMessageHandlerError = "MESSAGE_HANDLER_ERROR"

	// Internal codes, never pushed to a game surface as-is.
	CodeChainError    = "CHAIN_ERROR"
	CodeSignerError   = "SIGNER_ERROR"
	CodeStoreError    = "STORE_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
	CodeInternalError = "INTERNAL_ERROR"
)

// AppError is the application error crossing package boundaries.
// Recoverable tells the game surface whether retrying makes sense without
// tearing down the bridge session.
type AppError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
	Err         error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s [%v]", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Recoverable: IsRecoverable(code),
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, code string, message string) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Recoverable: IsRecoverable(code),
		Err:         err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode extracts the error code, falling back to INTERNAL_ERROR
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternalError
}

// IsRecoverable reports whether the session stays usable after this code.
// Non-recoverable codes mean the bridge itself is unusable and the surface
// should hard-stop.
func IsRecoverable(code string) bool {
	switch code {
	case CodeInitFailed, CodeUnauthorizedOrigin, CodeNotInitialized:
		return false
	default:
		return true
	}
}

// HTTPStatusFromCode maps error codes to HTTP status codes for the REST surface
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidMessage, CodeInvalidRequest, CodeInsufficientBalance:
		return http.StatusBadRequest
	case CodeUnauthorizedOrigin:
		return http.StatusForbidden
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeAlreadySpinning:
		return http.StatusConflict
	case CodeNotInitialized, CodeInitFailed:
		return http.StatusServiceUnavailable
	case CodeChainError, CodeSignerError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
