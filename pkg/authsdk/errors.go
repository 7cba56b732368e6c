package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired is returned when the refresh token has expired and
	// the user has to log in again.
	ErrSessionExpired = errors.New("authsdk: session expired, log in again")

	// ErrNoRefreshToken is returned when a login response carried no
	// refresh cookie.
	ErrNoRefreshToken = errors.New("authsdk: response has no refresh token")
)

// APIError is a failed envelope returned by the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authsdk: %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsRateLimited reports whether err is a 429 from the service.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// parseErrorResponse builds an APIError from a non-success response body,
// falling back to the status text when the body is not an envelope.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}
