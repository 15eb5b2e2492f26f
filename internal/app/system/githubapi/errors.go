package githubapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned for any non-2xx response. It does not classify the
// failure; callers that care inspect StatusCode.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("github %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("github %s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusCode returns the HTTP status of a remote failure, or 0 when err is
// not an *Error (for example a transport failure).
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
