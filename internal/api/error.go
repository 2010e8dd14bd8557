package api

import (
	"errors"
	"fmt"
)

// Error codes attached to every failure the gateway reports.
const (
	CodeNetworkError = "NETWORK_ERROR" // transport-level failure, Status is 0
	CodeAbortError   = "ABORT_ERROR"   // request canceled or timed out
	CodeAPIError     = "API_ERROR"     // non-2xx with a structured error body
	CodeUnknownError = "UNKNOWN_ERROR" // malformed or unexpected response body
)

// Error is the single error shape every backend failure is normalized
// into. Status is the HTTP status, or 0 for transport-level failures.
// Code is either one of the codes above or a machine-readable code
// supplied by the backend's error body.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// IsCode reports whether err is a gateway Error with the given code.
func IsCode(err error, code string) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
