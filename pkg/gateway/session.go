package gateway

import (
	"encoding/json"
	"net/http"
)

// environmentRequest is the body of PUT /v1/environment.
type environmentRequest struct {
	Environment string `json:"environment"`
}

// handleLogin authenticates against the platform eagerly. Callers do
// not have to use it: the first relayed call logs in lazily anyway.
func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := g.client.Session().Authenticate(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "authenticated",
		"environment": g.client.Session().Environment(),
	})
}

// handleLogout terminates the upstream session. The cached token pair
// is dropped even when the upstream call fails.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := g.client.Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// handleGetEnvironment returns the active environment and whether a
// session token pair is currently cached.
func (g *Gateway) handleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"environment":   g.client.Session().Environment(),
		"authenticated": g.client.Session().Authenticated(),
	})
}

// handleSwitchEnvironment switches the active upstream environment.
// Switching drops the cached token pair; an invalid value leaves the
// previous environment untouched.
func (g *Gateway) handleSwitchEnvironment(w http.ResponseWriter, r *http.Request) {
	var req environmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	if err := g.client.SelectEnvironment(req.Environment); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "switched",
		"environment": g.client.Session().Environment(),
	})
}
