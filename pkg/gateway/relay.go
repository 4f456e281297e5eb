package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// relayPrefix is stripped from inbound paths before forwarding; what
// remains is the platform path relative to the versioned API root.
const relayPrefix = "/v1/api"

// maxRelayBody caps the inbound body size for relayed calls.
const maxRelayBody = 1 << 20 // 1MB

// handleRelay forwards method, path, query string, and JSON body of an
// inbound request to the platform. All session handling, the single
// renewal cycle, and error classification happen in the dispatcher;
// the handler only translates between HTTP and the error taxonomy.
func (g *Gateway) handleRelay(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, relayPrefix)
	if path == "" || path == "/" {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "missing upstream path"})
		return
	}

	var body any
	if r.Body != nil && r.ContentLength != 0 {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxRelayBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body"})
			return
		}
		if len(raw) > 0 {
			var payload json.RawMessage
			if err := json.Unmarshal(raw, &payload); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "request body must be JSON"})
				return
			}
			body = payload
		}
	}

	result, err := g.dispatch(r.Context(), r.Method, path, body, r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeResult(w, result)
}
