package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeRateLimited       ErrCode = "RATE_LIMITED"
	ErrCodeUnauthorized      ErrCode = "UNAUTHORIZED"
	ErrCodeNotFound          ErrCode = "NOT_FOUND"
	ErrCodeServerError       ErrCode = "SERVER_ERROR"
	ErrCodeHTTPError         ErrCode = "HTTP_ERROR"
	ErrCodeNetworkError      ErrCode = "NETWORK_ERROR"
	ErrCodeMalformedResponse ErrCode = "MALFORMED_RESPONSE"
	ErrCodeCircuitOpen       ErrCode = "CIRCUIT_OPEN"
	ErrCodeBadRequest        ErrCode = "BAD_REQUEST"
	ErrCodeInternal          ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Status  int    // HTTP status, 0 when no response was received
	URL     string // request URL, if any
	Err     error
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.URL != "" {
		msg += " [" + e.URL + "]"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// FromStatus maps a non-2xx HTTP status to an AppError
func FromStatus(status int, url string) *AppError {
	switch {
	case status == http.StatusTooManyRequests:
		return &AppError{Code: ErrCodeRateLimited, Message: "429 Too Many Requests", Status: status, URL: url}
	case status == http.StatusUnauthorized:
		return &AppError{Code: ErrCodeUnauthorized, Message: "401 Unauthorized", Status: status, URL: url}
	case status == http.StatusNotFound:
		return &AppError{Code: ErrCodeNotFound, Message: "404 Not Found", Status: status, URL: url}
	case status >= 500:
		return &AppError{Code: ErrCodeServerError, Message: fmt.Sprintf("server returned %d", status), Status: status, URL: url}
	default:
		return &AppError{Code: ErrCodeHTTPError, Message: fmt.Sprintf("unexpected status %d", status), Status: status, URL: url}
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(url string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeNetworkError,
		Message: "request failed",
		URL:     url,
		Err:     err,
	}
}

// NewMalformedResponseError creates a new malformed response error
func NewMalformedResponseError(url, message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeMalformedResponse,
		Message: message,
		URL:     url,
		Err:     err,
	}
}

// NewCircuitOpenError creates a new circuit open error
func NewCircuitOpenError(url string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeCircuitOpen,
		Message: "too many consecutive failures, request not attempted",
		URL:     url,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewNotFoundError creates a new not found error for a local lookup
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	return CodeOf(err) == ErrCodeUnauthorized
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return CodeOf(err) == ErrCodeRateLimited
}
