package capital

import (
	"encoding/json"
	"time"
)

// Result is the relayed outcome of one successful upstream call.
// Exactly one of JSON and Text is populated unless the upstream body
// was empty, in which case both are zero and Empty reports true.
type Result struct {
	// Status is the final upstream HTTP status code.
	Status int

	// JSON holds the response payload verbatim when the upstream
	// declared a JSON content type.
	JSON json.RawMessage

	// Text holds the raw response body for non-JSON content types.
	Text string

	// Renewed reports whether a 401-triggered renewal cycle occurred
	// while serving this call. The caller only ever sees the final
	// response, never the intermediate 401.
	Renewed bool

	// Elapsed is the total upstream time spent on this call, including
	// any renewal cycle.
	Elapsed time.Duration
}

// Empty reports whether the upstream returned no body.
func (r *Result) Empty() bool {
	return len(r.JSON) == 0 && r.Text == ""
}

// Body returns the payload to relay to the caller along with its
// content type. An empty upstream body is replaced by a synthetic
// success marker so callers always receive a well-formed response.
func (r *Result) Body() ([]byte, string) {
	switch {
	case len(r.JSON) > 0:
		return r.JSON, "application/json"
	case r.Text != "":
		return []byte(r.Text), "text/plain; charset=utf-8"
	default:
		return []byte(`{"status":"success"}`), "application/json"
	}
}
