package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine readable part of an error reply
type ErrorCode string

const (
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Login
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserAlreadyExists  ErrorCode = "USER_ALREADY_EXISTS"

	// Second factor
	ErrCode2FAInvalid          ErrorCode = "TWO_FA_INVALID"
	ErrCode2FAAttemptsExceeded ErrorCode = "TWO_FA_ATTEMPTS_EXCEEDED"
	ErrCodeChallengeMissing    ErrorCode = "CHALLENGE_MISSING"

	// Code delivery
	ErrCodeDeliveryFailed     ErrorCode = "DELIVERY_FAILED"
	ErrCodeChannelUnavailable ErrorCode = "CHANNEL_UNAVAILABLE"
)

var statusByCode = map[ErrorCode]int{
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeInvalidCredentials:  http.StatusUnauthorized,
	ErrCode2FAInvalid:          http.StatusUnauthorized,
	ErrCode2FAAttemptsExceeded: http.StatusUnauthorized,
	ErrCodeChallengeMissing:    http.StatusUnauthorized,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeUserAlreadyExists:   http.StatusConflict,
	ErrCodeRateLimitExceeded:   http.StatusTooManyRequests,
	ErrCodeDeliveryFailed:      http.StatusBadGateway,
	ErrCodeChannelUnavailable:  http.StatusServiceUnavailable,
}

// Status returns the HTTP status for c. Unknown codes are 500.
func (c ErrorCode) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is a coded error. Message and Details are sent to the client, Err
// only to the logs.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail sets a client visible detail and returns e
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// Status returns the HTTP status of the code
func (e *Error) Status() int {
	return e.Code.Status()
}

// New returns an Error without a cause
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches code and message to err. Wrap(nil, ...) is nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in the chain of err
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// InvalidInput reports a bad request field
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Internal hides err behind a generic message
func Internal(err error) *Error {
	return &Error{
		Code:    ErrCodeInternal,
		Message: "something went wrong, please try again",
		Err:     err,
	}
}

// RateLimitExceeded carries retryAfter, in seconds, as the retry_after detail
func RateLimitExceeded(retryAfter string) *Error {
	err := New(ErrCodeRateLimitExceeded, "too many requests, please wait before trying again")
	if retryAfter != "" {
		err.WithDetail("retry_after", retryAfter)
	}
	return err
}

// Is is errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As
func As(err error, target any) bool {
	return errors.As(err, target)
}
