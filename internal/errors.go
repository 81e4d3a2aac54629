package internal

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the broad class of a failure and decides the HTTP status.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
	ErrorTypeTooLarge     ErrorType = "PAYLOAD_TOO_LARGE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeRateLimited:  http.StatusTooManyRequests,
	ErrorTypeTooLarge:     http.StatusRequestEntityTooLarge,
	ErrorTypeInternal:     http.StatusInternalServerError,
}

// ErrorCode is the machine-readable reason clients switch on.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidBody      ErrorCode = "INVALID_BODY"
	ErrCodeInvalidScore     ErrorCode = "INVALID_SCORE"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"
	ErrCodeMissingFile      ErrorCode = "MISSING_FILE"
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"

	ErrCodeInvalidCredentials  ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeMissingToken        ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired        ErrorCode = "TOKEN_EXPIRED"
	ErrCodeInvalidRefreshToken ErrorCode = "INVALID_REFRESH_TOKEN"
	ErrCodeInvalidResetToken   ErrorCode = "INVALID_RESET_TOKEN"
	ErrCodeInsufficientRole    ErrorCode = "INSUFFICIENT_ROLE"

	ErrCodeEmailTaken       ErrorCode = "EMAIL_ALREADY_REGISTERED"
	ErrCodeUserNotFound     ErrorCode = "USER_NOT_FOUND"
	ErrCodeSupplierNotFound ErrorCode = "SUPPLIER_NOT_FOUND"

	ErrCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError is the only error shape handlers put on the wire. Cause and
// StatusCode stay server-side.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func newAppError(t ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: statusByType[t]}
}

func (e *AppError) Error() string {
	if ve, ok := e.Details.(ValidationErrors); ok && len(ve.Errors) > 0 {
		return ve.Errors[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches app errors by type and code so sentinels still compare equal
// after WithCause or WithDetails copied them.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy carrying cause; sentinels stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message)
}

// NewValidationFieldError reports a single bad field under the generic
// VALIDATION_FAILED code; the field-specific code goes into the details.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, ErrCodeValidationFailed, "Validation failed").
		WithDetails(ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}})
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, ErrCodeInternal, message).WithCause(cause)
}

var (
	ErrInvalidBody  = NewValidationError("Invalid request body", ErrCodeInvalidBody)
	ErrMissingFile  = NewValidationError("Missing file", ErrCodeMissingFile)
	ErrFileTooLarge = newAppError(ErrorTypeTooLarge, ErrCodeFileTooLarge, "File too large")

	ErrInvalidCredentials  = newAppError(ErrorTypeUnauthorized, ErrCodeInvalidCredentials, "Invalid credentials")
	ErrMissingToken        = newAppError(ErrorTypeUnauthorized, ErrCodeMissingToken, "Missing token")
	ErrInvalidToken        = newAppError(ErrorTypeUnauthorized, ErrCodeInvalidToken, "Invalid token")
	ErrTokenExpired        = newAppError(ErrorTypeUnauthorized, ErrCodeTokenExpired, "Token has expired")
	ErrInvalidRefreshToken = newAppError(ErrorTypeUnauthorized, ErrCodeInvalidRefreshToken, "Invalid refresh token")
	ErrInvalidResetToken   = newAppError(ErrorTypeUnauthorized, ErrCodeInvalidResetToken, "Invalid or expired reset token")
	ErrInsufficientRole    = newAppError(ErrorTypeForbidden, ErrCodeInsufficientRole, "Forbidden")

	ErrEmailTaken       = newAppError(ErrorTypeConflict, ErrCodeEmailTaken, "Email already registered")
	ErrUserNotFound     = newAppError(ErrorTypeNotFound, ErrCodeUserNotFound, "User not found")
	ErrSupplierNotFound = newAppError(ErrorTypeNotFound, ErrCodeSupplierNotFound, "Supplier not found")

	ErrTooManyRequests = newAppError(ErrorTypeRateLimited, ErrCodeTooManyRequests, "Rate limit exceeded")
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Response is the error envelope: {"error": {...}}.
type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}
