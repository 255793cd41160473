package warehance

import "fmt"

// AuthError indicates the API rejected our credentials. Callers must
// abort the run: retrying or continuing to other pages cannot succeed.
type AuthError struct {
	StatusCode int
	Endpoint   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("warehance auth rejected (status %d) on %s: check API key", e.StatusCode, e.Endpoint)
}

// TransientError indicates a failure that may succeed on retry, such
// as a 5xx response or a network error that survived the client's own
// retry budget.
type TransientError struct {
	Endpoint string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("warehance request failed on %s: %v", e.Endpoint, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// APIError indicates the API returned a non-auth error status with a
// readable body.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("warehance API error (status %d) on %s: %s", e.StatusCode, e.Endpoint, e.Body)
}
