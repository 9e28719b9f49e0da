package dida

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyProjectID is a request-shaping validation failure raised before any
// network call.
var ErrEmptyProjectID = errors.New("projectId must not be empty")

// APIError is a non-2xx response from the task API. The raw body is kept for
// classification and diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dida api: status %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is a 401 from the task API, the sole
// trigger for the credential recovery protocol.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404, meaning the task was likely
// deleted upstream.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimit matches HTTP 429 and the provider's "exceed_query_limit" error
// body. The substring match is a best-effort heuristic on top of the status
// code.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests ||
		strings.Contains(apiErr.Body, "exceed_query_limit")
}
