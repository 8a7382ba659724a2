package errors

import (
	"fmt"
	"net/http"
)

// Kind groups API errors by how the client should react to them.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindUpstreamEmpty Kind = "upstream_empty"
	KindTransport     Kind = "transport"
	KindUnauthorized  Kind = "unauthorized"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`

	cause error
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the upstream cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// Is matches on Code so copies produced by WithCause still compare equal to their sentinel.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of e carrying err as its cause and details.
func (e *APIError) WithCause(err error) *APIError {
	c := *e
	if err != nil {
		c.cause = err
		c.Details = err.Error()
	}
	return &c
}

// WithMessage returns a copy of e with a different user-facing message.
func (e *APIError) WithMessage(message string) *APIError {
	c := *e
	c.Message = message
	return &c
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Kind:    kindForStatus(status),
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func newKindError(kind Kind, code, message string, status int) *APIError {
	err := NewAPIError(code, message, status)
	err.Kind = kind
	return err
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
		return KindTransport
	default:
		return KindInternal
	}
}

var (
	ErrInvalidInput = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrUnauthorized = NewAPIError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrNotFound     = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternal     = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrConflict     = NewAPIError("CONFLICT", "Resource conflict", http.StatusConflict)
)

// Doctor locator
var (
	ErrEmptyPlace       = newKindError(KindValidation, "EMPTY_PLACE", "Enter city or ZIP.", http.StatusBadRequest)
	ErrInvalidCoords    = newKindError(KindValidation, "INVALID_COORDINATES", "Latitude must be within [-90,90] and longitude within [-180,180]", http.StatusBadRequest)
	ErrInvalidRankBy    = newKindError(KindValidation, "INVALID_RANK_BY", "rank_by must be one of insertion, distance, rating", http.StatusBadRequest)
	ErrLocationNotFound = newKindError(KindUpstreamEmpty, "LOCATION_NOT_FOUND", "Location not found.", http.StatusNotFound)
	ErrGeocodeFailed    = newKindError(KindTransport, "GEOCODE_FAILED", "Error resolving location.", http.StatusBadGateway)
	ErrDoctorFetch      = newKindError(KindTransport, "DOCTOR_FETCH_FAILED", "Error fetching doctors.", http.StatusBadGateway)
	ErrSessionNotFound  = newKindError(KindNotFound, "SESSION_NOT_FOUND", "Map session not found", http.StatusNotFound)
)

// Prediction gateway
var (
	ErrNoSymptoms      = newKindError(KindValidation, "NO_SYMPTOMS", "Select at least one symptom.", http.StatusBadRequest)
	ErrInvalidSeverity = newKindError(KindValidation, "INVALID_SEVERITY", "Severity must be 1 (mild) or 2 (severe)", http.StatusBadRequest)
	ErrBackend         = newKindError(KindTransport, "BACKEND_ERROR", "Backend error.", http.StatusBadGateway)
)

func Wrap(err error, code, message string, status int) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	wrapped := NewAPIError(code, message, status, err.Error())
	wrapped.cause = err
	return wrapped
}
