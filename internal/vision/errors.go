package vision

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when no backend URL is set.
	ErrNotConfigured = errors.New("vision: backend not configured")

	// ErrAnalysisFailed is returned when the backend answered with
	// success=false.
	ErrAnalysisFailed = errors.New("vision: analysis failed")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vision: backend error %d: %s", e.StatusCode, e.Message)
}

// IsServerError reports a 5xx status.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
