package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"capgw/pkg/audit"
	"capgw/pkg/audit/storage"
	"capgw/pkg/capital"
)

// fakePlatform is a minimal stand-in for the trading platform: it
// issues token pairs on login and echoes details of relayed calls.
func fakePlatform(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(capital.HeaderAPIKey) == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set(capital.HeaderCST, "cst-token")
		w.Header().Set(capital.HeaderSecurityToken, "sec-token")
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /markets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"markets":    []string{"GOLD", "SILVER"},
			"searchTerm": r.URL.Query().Get("searchTerm"),
		})
	})

	mux.HandleFunc("POST /positions", func(w http.ResponseWriter, r *http.Request) {
		var order map[string]any
		_ = json.NewDecoder(r.Body).Decode(&order)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dealReference": "ref-1",
			"epic":          order["epic"],
		})
	})

	mux.HandleFunc("DELETE /positions/{dealId}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"dealReference": "close-" + r.PathValue("dealId"),
		})
	})

	mux.HandleFunc("GET /markets/UNKNOWN", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"errorCode": "error.not-found.epic",
			"message":   "unknown epic",
		})
	})

	mux.HandleFunc("DELETE /session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return httptest.NewServer(mux)
}

func newTestGateway(t *testing.T, upstreamURL string) (*Gateway, *storage.MemoryStorage, *audit.Recorder) {
	t.Helper()

	client := capital.NewClient(map[capital.Environment]capital.Credentials{
		capital.Demo: {
			BaseURL:    upstreamURL,
			APIKey:     "test-key",
			Identifier: "trader@example.com",
			Password:   "secret",
		},
	}, capital.ClientConfig{Timeout: 5 * time.Second})
	t.Cleanup(func() { client.Close() })

	store := storage.NewMemoryStorage()
	recorder := audit.NewRecorder(store, &audit.RecorderConfig{
		Enabled:      true,
		AsyncBuffer:  100,
		WriteTimeout: time.Second,
	})
	t.Cleanup(func() { recorder.Close() })

	return New(client, Options{Recorder: recorder}), store, recorder
}

func serve(g *Gateway) *http.ServeMux {
	mux := http.NewServeMux()
	g.Routes(mux)
	return mux
}

func TestGateway_LoginEagerly(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, _, _ := newTestGateway(t, platform.URL)
	if err := g.client.SelectEnvironment("demo"); err != nil {
		t.Fatalf("select environment: %v", err)
	}
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/session", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !g.client.Session().Authenticated() {
		t.Error("expected a cached token pair after login")
	}
}

func TestGateway_RelayForwardsCall(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, _, _ := newTestGateway(t, platform.URL)
	_ = g.client.SelectEnvironment("demo")
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/api/markets?searchTerm=gold", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Markets    []string `json:"markets"`
		SearchTerm string   `json:"searchTerm"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode relay response: %v", err)
	}
	if payload.SearchTerm != "gold" {
		t.Errorf("expected query forwarded, got %q", payload.SearchTerm)
	}
	if len(payload.Markets) != 2 {
		t.Errorf("expected upstream payload relayed, got %+v", payload)
	}
}

func TestGateway_RelayWithoutEnvironmentConflicts(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, _, _ := newTestGateway(t, platform.URL)
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/api/accounts", nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 before environment selection, got %d", rec.Code)
	}
}

func TestGateway_SwitchEnvironmentValidation(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, _, _ := newTestGateway(t, platform.URL)
	mux := serve(g)

	// Valid switch
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/environment",
		strings.NewReader(`{"environment":"demo"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid switch, got %d", rec.Code)
	}

	// Invalid value leaves the prior environment untouched
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/v1/environment",
		strings.NewReader(`{"environment":"staging"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid environment, got %d", rec.Code)
	}
	if g.client.Session().Environment() != capital.Demo {
		t.Errorf("expected demo still active, got %q", g.client.Session().Environment())
	}
}

func TestGateway_RelaysUpstreamErrorStatus(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, _, _ := newTestGateway(t, platform.URL)
	_ = g.client.SelectEnvironment("demo")
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/api/markets/UNKNOWN", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected upstream 404 relayed, got %d", rec.Code)
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != "error.not-found.epic" || body.Error != "unknown epic" {
		t.Errorf("expected platform error relayed, got %+v", body)
	}
}

func TestGateway_TransportFailureIs502(t *testing.T) {
	g, _, _ := newTestGateway(t, "http://127.0.0.1:1")
	_ = g.client.SelectEnvironment("demo")
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/api/accounts", nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 for unreachable platform, got %d", rec.Code)
	}
}

func TestGateway_OpenPositionValidatesTicket(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, _, _ := newTestGateway(t, platform.URL)
	_ = g.client.SelectEnvironment("demo")
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/positions",
		strings.NewReader(`{"direction":"BUY"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for incomplete ticket, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/positions",
		strings.NewReader(`{"epic":"GOLD","direction":"BUY","size":1}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid ticket, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	if payload["dealReference"] != "ref-1" || payload["epic"] != "GOLD" {
		t.Errorf("expected deal ticket forwarded, got %+v", payload)
	}
}

func TestGateway_ClosePositionUsesPathValue(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, _, _ := newTestGateway(t, platform.URL)
	_ = g.client.SelectEnvironment("demo")
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/positions/deal-42", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "close-deal-42") {
		t.Errorf("expected deal ID forwarded, got %s", rec.Body.String())
	}
}

func TestGateway_ReadyReflectsEnvironmentState(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, _, _ := newTestGateway(t, platform.URL)
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before environment selection, got %d", rec.Code)
	}

	_ = g.client.SelectEnvironment("demo")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected ready after selection, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected healthy, got %d", rec.Code)
	}
}

func TestGateway_AuditRecordsRelayedCalls(t *testing.T) {
	platform := fakePlatform(t)
	defer platform.Close()

	g, store, recorder := newTestGateway(t, platform.URL)
	_ = g.client.SelectEnvironment("demo")
	mux := serve(g)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/api/markets", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("relay failed: %d", rec.Code)
	}

	recorder.Close()

	records, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list audit records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(records))
	}
	record := records[0]
	if record.Environment != "demo" || record.Method != http.MethodGet || record.Path != "/markets" {
		t.Errorf("audit record mismatch: %+v", record)
	}
	if record.Status != http.StatusOK || record.ErrorKind != "" {
		t.Errorf("expected successful record, got %+v", record)
	}
}
