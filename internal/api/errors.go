package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx response from the backend
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

// IsNotFound reports whether err is a 404 response
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// isServerFailure classifies errors for the circuit breaker: transport
// failures and 5xx responses count, client errors do not
func isServerFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}

// errorBody is the backend's error envelope; detail may be a string or a
// list of validation problems
type errorBody struct {
	Detail interface{} `json:"detail"`
}

func (b *errorBody) message() string {
	if b == nil || b.Detail == nil {
		return ""
	}
	if s, ok := b.Detail.(string); ok {
		return s
	}
	return fmt.Sprint(b.Detail)
}
