package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so wrapped sentinels compare with errors.Is.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// Scan pipeline error codes.
const (
	CodeMalformedPayload    = "MALFORMED_PAYLOAD"
	CodeExpired             = "TOKEN_EXPIRED"
	CodeDuplicateInSession  = "DUPLICATE_IN_SESSION"
	CodeRecorderUnavailable = "RECORDER_UNAVAILABLE"
	CodeUnauthorizedReader  = "UNAUTHORIZED_READER"
	CodeDeviceUnavailable   = "DEVICE_UNAVAILABLE"
)

var (
	ErrMalformedPayload    = NewDomainError(CodeMalformedPayload, "invalid code", http.StatusBadRequest, nil)
	ErrExpired             = NewDomainError(CodeExpired, "expired", http.StatusGone, nil)
	ErrDuplicateInSession  = NewDomainError(CodeDuplicateInSession, "already scanned this session", http.StatusConflict, nil)
	ErrRecorderUnavailable = NewDomainError(CodeRecorderUnavailable, "attendance could not be recorded", http.StatusBadGateway, nil)
	ErrUnauthorizedReader  = NewDomainError(CodeUnauthorizedReader, "reader is not authorized to scan", http.StatusForbidden, nil)
	ErrDeviceUnavailable   = NewDomainError(CodeDeviceUnavailable, "camera device unavailable", http.StatusServiceUnavailable, nil)
)

// Wrap returns a copy of the sentinel carrying err as its cause.
func Wrap(sentinel *DomainError, err error) error {
	return &DomainError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		HTTPStatus: sentinel.HTTPStatus,
		Details:    sentinel.Details,
		Err:        err,
	}
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
