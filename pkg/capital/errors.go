package capital

import "fmt"

// AuthReason identifies why authentication could not be established
// or re-established.
type AuthReason string

const (
	// ReasonNotSelected means no environment was selected before the call.
	ReasonNotSelected AuthReason = "not_selected"

	// ReasonUpstreamReject means the platform rejected the login request
	// with a non-200 status.
	ReasonUpstreamReject AuthReason = "upstream_reject"

	// ReasonMissingTokens means the login succeeded but the response was
	// missing one or both session token headers.
	ReasonMissingTokens AuthReason = "missing_tokens"

	// ReasonUnauthorized means the platform returned 401 and the single
	// permitted renewal cycle did not recover the session.
	ReasonUnauthorized AuthReason = "unauthorized"
)

// ConfigError represents a missing or unusable credential.
// It is detected lazily at the first call that needs the credential,
// not at startup.
type ConfigError struct {
	// Environment is the environment whose configuration is incomplete.
	Environment Environment

	// Field is the missing configuration field.
	Field string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("environment %q configuration error: missing %s", e.Environment, e.Field)
}

// InvalidEnvironmentError represents a request for an unknown environment.
// The previously active environment and any cached tokens are left untouched.
type InvalidEnvironmentError struct {
	// Value is the rejected environment value.
	Value string
}

// Error implements the error interface.
func (e *InvalidEnvironmentError) Error() string {
	return fmt.Sprintf("invalid environment %q (expected %q or %q)", e.Value, Demo, Live)
}

// AuthError represents a failure to establish or re-establish an
// authenticated session with the platform.
type AuthError struct {
	// Reason classifies the authentication failure.
	Reason AuthReason

	// Status is the upstream HTTP status code (0 if not applicable).
	Status int

	// Message is the error message derived from the upstream response body.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	switch e.Reason {
	case ReasonNotSelected:
		return "authentication failed: no environment selected"
	case ReasonMissingTokens:
		return "authentication failed: session token headers missing from login response"
	case ReasonUnauthorized:
		if e.Cause != nil {
			return fmt.Sprintf("authentication failed: session rejected (status %d): %v", e.Status, e.Cause)
		}
		return fmt.Sprintf("authentication failed: session rejected (status %d)", e.Status)
	default:
		return fmt.Sprintf("authentication failed (status %d): %s", e.Status, e.Message)
	}
}

// Unwrap returns the underlying error for error chain support.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// UpstreamError represents an authenticated call the platform rejected
// for a reason other than expired credentials.
type UpstreamError struct {
	// Status is the upstream HTTP status code.
	Status int

	// Code is the platform error code from the JSON error body (if any).
	Code string

	// Message is the error message from the response body, or the raw
	// body text when no error structure could be parsed.
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream error (status %d, code %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Message)
}

// TransportError represents a network-level failure reaching the platform.
// It wraps the underlying cause and is never conflated with AuthError.
type TransportError struct {
	// Op is the operation being attempted ("login", "request").
	Op string

	// Cause is the underlying network error.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}
