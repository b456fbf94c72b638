package license

import (
	"fmt"
	"net/http"
)

// Reason tells why content keys could not be resolved
type Reason string

const (
	ReasonNotAuthorized  Reason = "not_authorized"
	ReasonUnreachable    Reason = "backend_unreachable"
	ReasonNoKeys         Reason = "no_keys"
	ReasonInvalidRequest Reason = "invalid_request"
)

// KeyResolutionError is returned when content keys cannot be obtained
type KeyResolutionError struct {
	Reason  Reason
	Message string // human readable message, from the backend when it sent one
	Err     error  // underlying transport error if any
}

func (e *KeyResolutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("key resolution failed (%s): %s", e.Reason, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("key resolution failed (%s): %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("key resolution failed (%s)", e.Reason)
}

func (e *KeyResolutionError) Unwrap() error {
	return e.Err
}

// HTTPError is a non 2xx answer of the licensing backend
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("licensing backend answered %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Temporary reports whether the request may succeed on retry
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Unauthorized reports whether the backend refused the credentials
func (e *HTTPError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
