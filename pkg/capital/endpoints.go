package capital

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Typed wrappers over Request for the endpoint families the gateway
// consumes. They only marshal parameters; all session handling, renewal,
// and error classification lives in the dispatcher.

// Logout terminates the upstream session and drops the cached token
// pair regardless of whether the upstream call succeeded.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodDelete, "/session", nil, nil)
	c.session.Invalidate()
	return err
}

// Accounts lists the accounts available under the active session.
func (c *Client) Accounts(ctx context.Context) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/accounts", nil, nil)
}

// AccountPreferences returns the session's account preferences.
func (c *Client) AccountPreferences(ctx context.Context) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/accounts/preferences", nil, nil)
}

// UpdateAccountPreferences updates leverage and hedging preferences.
func (c *Client) UpdateAccountPreferences(ctx context.Context, preferences any) (*Result, error) {
	return c.Request(ctx, http.MethodPut, "/accounts/preferences", preferences, nil)
}

// TopUp adds demo funds to the active account. Only meaningful under
// the demo environment; the platform rejects it under live.
func (c *Client) TopUp(ctx context.Context, amount float64) (*Result, error) {
	return c.Request(ctx, http.MethodPost, "/accounts/topUp", map[string]float64{"amount": amount}, nil)
}

// Markets searches tradable markets by search term and/or EPICs.
func (c *Client) Markets(ctx context.Context, searchTerm string, epics []string) (*Result, error) {
	params := url.Values{}
	if searchTerm != "" {
		params.Set("searchTerm", searchTerm)
	}
	for _, epic := range epics {
		params.Add("epics", epic)
	}
	return c.Request(ctx, http.MethodGet, "/markets", nil, params)
}

// Market returns the details of a single market by EPIC.
func (c *Client) Market(ctx context.Context, epic string) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/markets/"+url.PathEscape(epic), nil, nil)
}

// MarketNavigation returns the market category tree, or one node of it
// when nodeID is non-empty.
func (c *Client) MarketNavigation(ctx context.Context, nodeID string, limit int) (*Result, error) {
	path := "/marketnavigation"
	params := url.Values{}
	if nodeID != "" {
		path += "/" + url.PathEscape(nodeID)
		if limit > 0 {
			params.Set("limit", strconv.Itoa(limit))
		}
	}
	return c.Request(ctx, http.MethodGet, path, nil, params)
}

// PriceQuery narrows a historical prices request.
type PriceQuery struct {
	// Resolution is the candle resolution (MINUTE, HOUR_4, DAY, ...).
	Resolution string

	// Max caps the number of returned candles.
	Max int

	// From and To bound the query window; zero values are omitted.
	From time.Time
	To   time.Time
}

// Prices returns historical candles for an EPIC.
func (c *Client) Prices(ctx context.Context, epic string, query PriceQuery) (*Result, error) {
	params := url.Values{}
	if query.Resolution != "" {
		params.Set("resolution", query.Resolution)
	}
	if query.Max > 0 {
		params.Set("max", strconv.Itoa(query.Max))
	}
	if !query.From.IsZero() {
		params.Set("from", query.From.UTC().Format("2006-01-02T15:04:05"))
	}
	if !query.To.IsZero() {
		params.Set("to", query.To.UTC().Format("2006-01-02T15:04:05"))
	}
	return c.Request(ctx, http.MethodGet, "/prices/"+url.PathEscape(epic), nil, params)
}

// PositionOrder is the payload for opening a position. Field names
// mirror the platform's deal ticket.
type PositionOrder struct {
	Epic           string  `json:"epic"`
	Direction      string  `json:"direction"` // BUY or SELL
	Size           float64 `json:"size"`
	GuaranteedStop bool    `json:"guaranteedStop"`
	StopLevel      float64 `json:"stopLevel,omitempty"`
	StopDistance   float64 `json:"stopDistance,omitempty"`
	ProfitLevel    float64 `json:"profitLevel,omitempty"`
	ProfitDistance float64 `json:"profitDistance,omitempty"`
}

// Positions lists the open positions of the active account.
func (c *Client) Positions(ctx context.Context) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/positions", nil, nil)
}

// Position returns a single open position by deal ID.
func (c *Client) Position(ctx context.Context, dealID string) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/positions/"+url.PathEscape(dealID), nil, nil)
}

// OpenPosition submits a market order opening a position. The returned
// payload carries the deal reference to correlate with Confirm.
func (c *Client) OpenPosition(ctx context.Context, order PositionOrder) (*Result, error) {
	return c.Request(ctx, http.MethodPost, "/positions", order, nil)
}

// UpdatePosition changes the stop and profit levels of an open position.
func (c *Client) UpdatePosition(ctx context.Context, dealID string, update any) (*Result, error) {
	return c.Request(ctx, http.MethodPut, "/positions/"+url.PathEscape(dealID), update, nil)
}

// ClosePosition closes an open position by deal ID.
func (c *Client) ClosePosition(ctx context.Context, dealID string) (*Result, error) {
	return c.Request(ctx, http.MethodDelete, "/positions/"+url.PathEscape(dealID), nil, nil)
}

// WorkingOrder is the payload for creating a working order: an order
// pending at a trigger level rather than filled immediately.
type WorkingOrder struct {
	Epic           string  `json:"epic"`
	Direction      string  `json:"direction"`
	Size           float64 `json:"size"`
	Level          float64 `json:"level"`
	Type           string  `json:"type"` // LIMIT or STOP
	GoodTillDate   string  `json:"goodTillDate,omitempty"`
	GuaranteedStop bool    `json:"guaranteedStop"`
	StopLevel      float64 `json:"stopLevel,omitempty"`
	ProfitLevel    float64 `json:"profitLevel,omitempty"`
}

// WorkingOrders lists the pending working orders.
func (c *Client) WorkingOrders(ctx context.Context) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/workingorders", nil, nil)
}

// CreateWorkingOrder places a new working order.
func (c *Client) CreateWorkingOrder(ctx context.Context, order WorkingOrder) (*Result, error) {
	return c.Request(ctx, http.MethodPost, "/workingorders", order, nil)
}

// UpdateWorkingOrder changes the level or attached stops of a pending
// working order.
func (c *Client) UpdateWorkingOrder(ctx context.Context, dealID string, update any) (*Result, error) {
	return c.Request(ctx, http.MethodPut, "/workingorders/"+url.PathEscape(dealID), update, nil)
}

// DeleteWorkingOrder cancels a pending working order.
func (c *Client) DeleteWorkingOrder(ctx context.Context, dealID string) (*Result, error) {
	return c.Request(ctx, http.MethodDelete, "/workingorders/"+url.PathEscape(dealID), nil, nil)
}

// Watchlists lists the account's watchlists.
func (c *Client) Watchlists(ctx context.Context) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/watchlists", nil, nil)
}

// Watchlist returns the markets of one watchlist.
func (c *Client) Watchlist(ctx context.Context, watchlistID string) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/watchlists/"+url.PathEscape(watchlistID), nil, nil)
}

// Confirm returns the confirmation for a submitted order by deal
// reference, correlating it with the resulting position.
func (c *Client) Confirm(ctx context.Context, dealReference string) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/confirms/"+url.PathEscape(dealReference), nil, nil)
}

// ClientSentiment returns the client sentiment for the given market IDs.
func (c *Client) ClientSentiment(ctx context.Context, marketIDs []string) (*Result, error) {
	params := url.Values{}
	for _, id := range marketIDs {
		params.Add("marketIds", id)
	}
	return c.Request(ctx, http.MethodGet, "/clientsentiment", nil, params)
}

// HistoryQuery bounds a transaction or activity history request.
type HistoryQuery struct {
	From     time.Time
	To       time.Time
	LastDays int

	// Type filters transactions by type (DEPOSIT, WITHDRAWAL, TRADE, ...).
	Type string
}

func (q HistoryQuery) values() url.Values {
	params := url.Values{}
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format("2006-01-02T15:04:05"))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format("2006-01-02T15:04:05"))
	}
	if q.LastDays > 0 {
		params.Set("lastPeriod", strconv.Itoa(q.LastDays*86400))
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	return params
}

// Transactions returns the account's transaction history.
func (c *Client) Transactions(ctx context.Context, query HistoryQuery) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/history/transactions", nil, query.values())
}

// Activity returns the account's activity history.
func (c *Client) Activity(ctx context.Context, query HistoryQuery) (*Result, error) {
	return c.Request(ctx, http.MethodGet, "/history/activity", nil, query.values())
}
