package gateway

import (
	"net/http"
)

// handleHealth reports process liveness. It never touches the platform.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports readiness: an environment must be selected and
// its credentials complete. It does not probe the platform, so a ready
// gateway can still fail its first call on bad credentials.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	env := g.client.Session().Environment()
	if env == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "no environment selected",
		})
		return
	}

	if err := g.client.Session().CheckCredentials(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"environment":   env,
		"authenticated": g.client.Session().Authenticated(),
	})
}
