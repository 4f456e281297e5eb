package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"

	"capgw/pkg/capital"
)

// Convenience trading routes. They accept a typed deal ticket instead
// of a raw relay body, so malformed orders fail at the gateway with a
// clear message instead of an upstream 400.

// handleOpenPosition submits a market order opening a position.
func (g *Gateway) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var order capital.PositionOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid deal ticket"})
		return
	}
	if order.Epic == "" || order.Direction == "" || order.Size <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "deal ticket requires epic, direction, and a positive size"})
		return
	}

	result, err := g.dispatch(r.Context(), http.MethodPost, "/positions", order, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeResult(w, result)
}

// handleClosePosition closes an open position by deal ID.
func (g *Gateway) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	dealID := r.PathValue("dealId")
	if dealID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing deal ID"})
		return
	}

	result, err := g.dispatch(r.Context(), http.MethodDelete, "/positions/"+url.PathEscape(dealID), nil, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeResult(w, result)
}
