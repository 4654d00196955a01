package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials   = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid credentials")
	ErrIncorrectOldPassword = New("INCORRECT_OLD_PASSWORD", http.StatusUnauthorized, "old password incorrect")
	ErrUnauthorized         = New("UNAUTHORIZED", http.StatusUnauthorized, "invalid token")
	ErrMissingToken         = New("MISSING_TOKEN", http.StatusForbidden, "no token provided")
	ErrForbidden            = New("FORBIDDEN", http.StatusForbidden, "unauthorized")
	ErrNotFound             = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrEntityNotFound       = New("ENTITY_NOT_FOUND", http.StatusNotFound, "entity not found")
	ErrDuplicateKey         = New("DUPLICATE_KEY", http.StatusConflict, "duplicate key")
	ErrValidation           = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrAlreadyInstalled     = New("ALREADY_INSTALLED", http.StatusForbidden, "system already installed")
	ErrInvalidProductKey    = New("INVALID_PRODUCT_KEY", http.StatusBadRequest, "invalid product key")
	ErrLicenseLocked        = New("LICENSE_LOCKED", http.StatusForbidden, "system locked, please contact the vendor")
	ErrLicenseExpired       = New("LICENSE_EXPIRED", http.StatusForbidden, "license expired, please renew")
	ErrInternal             = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss            = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
