// Package apierr provides a small typed-error taxonomy shared across the
// engine, transport, and tool packages: server errors, invalid requests,
// not-found, provider errors, and too-many-requests.
package apierr

import "fmt"

// Type classifies an APIError for transport-level HTTP status mapping.
type Type string

const (
	TypeServerError     Type = "server_error"
	TypeInvalidRequest  Type = "invalid_request"
	TypeNotFound        Type = "not_found"
	TypeProviderError   Type = "provider_error"
	TypeTooManyRequests Type = "too_many_requests"
)

// APIError is a structured error with a category, optional parameter name,
// and a human-readable message.
type APIError struct {
	Type    Type   `json:"type"`
	Param   string `json:"param,omitempty"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewInvalidRequest creates an APIError for invalid request parameters.
func NewInvalidRequest(param, message string) *APIError {
	return &APIError{Type: TypeInvalidRequest, Param: param, Message: message}
}

// NewNotFound creates an APIError for resources that cannot be found.
func NewNotFound(message string) *APIError {
	return &APIError{Type: TypeNotFound, Message: message}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{Type: TypeServerError, Message: message}
}

// NewProviderError creates an APIError carrying the upstream provider's
// HTTP status code and raw response body, per spec.md §4.2's failure mode.
func NewProviderError(status int, body string) *APIError {
	return &APIError{
		Type:    TypeProviderError,
		Status:  status,
		Message: fmt.Sprintf("Provider error (%d): %s", status, body),
	}
}

// NewTooManyRequests creates an APIError for rate-limited upstream calls.
func NewTooManyRequests(message string) *APIError {
	return &APIError{Type: TypeTooManyRequests, Message: message}
}
