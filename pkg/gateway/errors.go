package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"capgw/pkg/capital"
)

// errorBody is the JSON error shape returned to gateway callers.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"errorCode,omitempty"`
}

// errorKind classifies an error for metrics labels and audit records.
func errorKind(err error) string {
	var configErr *capital.ConfigError
	var envErr *capital.InvalidEnvironmentError
	var authErr *capital.AuthError
	var upstreamErr *capital.UpstreamError
	var transportErr *capital.TransportError

	switch {
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &envErr):
		return "invalid_environment"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &upstreamErr):
		return "upstream"
	case errors.As(err, &transportErr):
		return "transport"
	default:
		return "internal"
	}
}

// errorStatus maps a classified error to the inbound HTTP status.
//
// InvalidEnvironment is the caller's mistake (400). ConfigError means
// the gateway cannot serve this environment at all (503). AuthError
// maps to 401, except NotSelected which is a sequencing conflict (409).
// UpstreamError relays the platform's own status. TransportError means
// the platform was unreachable (502). Anything unexpected is a 500.
func errorStatus(err error) int {
	var configErr *capital.ConfigError
	var envErr *capital.InvalidEnvironmentError
	var authErr *capital.AuthError
	var upstreamErr *capital.UpstreamError
	var transportErr *capital.TransportError

	switch {
	case errors.As(err, &envErr):
		return http.StatusBadRequest
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &authErr):
		if authErr.Reason == capital.ReasonNotSelected {
			return http.StatusConflict
		}
		return http.StatusUnauthorized
	case errors.As(err, &upstreamErr):
		return upstreamErr.Status
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the JSON error response for a classified failure.
// Unclassified errors get a generic body so internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	body := errorBody{Error: err.Error()}

	var upstreamErr *capital.UpstreamError
	if errors.As(err, &upstreamErr) {
		body.Error = upstreamErr.Message
		body.Code = upstreamErr.Code
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "unclassified gateway error",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		body = errorBody{Error: "internal server error"}
	}

	writeJSON(w, status, body)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeResult relays a successful upstream result to the caller, with
// the upstream's own status and payload.
func writeResult(w http.ResponseWriter, result *capital.Result) {
	payload, contentType := result.Body()
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(result.Status)
	_, _ = w.Write(payload)
}
