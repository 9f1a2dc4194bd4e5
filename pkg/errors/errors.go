package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
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

// Is matches errors sharing the same code so cloned sentinels still satisfy errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
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
	ErrInvalidCredentials  = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount     = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrUnauthenticated     = New("UNAUTHENTICATED", http.StatusUnauthorized, "authentication required")
	ErrForbidden           = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrOutOfScope          = New("OUT_OF_SCOPE", http.StatusForbidden, "record is outside your assigned scope")
	ErrInvalidTransition   = New("INVALID_TRANSITION", http.StatusConflict, "transition not permitted from current status")
	ErrAttestationInvalid  = New("ATTESTATION_INVALID", http.StatusUnauthorized, "proximity attestation is invalid")
	ErrAttestationExpired  = New("ATTESTATION_EXPIRED", http.StatusUnprocessableEntity, "proximity attestation expired")
	ErrAttestationMismatch = New("ATTESTATION_MISMATCH", http.StatusForbidden, "proximity attestation does not match this request")
	ErrAttestationConsumed = New("ATTESTATION_CONSUMED", http.StatusConflict, "proximity attestation already used")
	ErrDistanceExceeded    = New("DISTANCE_EXCEEDED", http.StatusUnprocessableEntity, "you are too far from the asset")
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrMissingRemark       = New("MISSING_REMARK", http.StatusBadRequest, "remark is required")
	ErrNoActionOfficer     = New("NO_ACTION_OFFICER", http.StatusConflict, "no action officer covers this location")
	ErrConflict            = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrTooManyRequests     = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "too many requests")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss           = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// ErrUnauthorized is kept as an alias of ErrUnauthenticated for middleware callers.
	ErrUnauthorized = ErrUnauthenticated
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
	if err.Details != nil {
		clone.Details = make(map[string]interface{}, len(err.Details))
		for k, v := range err.Details {
			clone.Details[k] = v
		}
	}
	return &clone
}

// WithDetails returns a copy of err carrying user-safe structured details.
func WithDetails(err *Error, details map[string]interface{}) *Error {
	clone := Clone(err, "")
	if clone == nil {
		return nil
	}
	if clone.Details == nil {
		clone.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		clone.Details[k] = v
	}
	return clone
}
