package capital

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_OpenPositionMarshalsDealTicket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" {
			w.Header().Set(HeaderCST, "abc")
			w.Header().Set(HeaderSecurityToken, "xyz")
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path != "/positions" || r.Method != http.MethodPost {
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
		var order PositionOrder
		if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode order: %v", err)
		}
		if order.Epic != "US500" || order.Direction != "BUY" || order.Size != 1 {
			t.Errorf("unexpected order payload: %+v", order)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dealReference":"ref-1"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()
	if err := client.SelectEnvironment("demo"); err != nil {
		t.Fatalf("SelectEnvironment failed: %v", err)
	}

	result, err := client.OpenPosition(context.Background(), PositionOrder{
		Epic:      "US500",
		Direction: "BUY",
		Size:      1,
	})
	if err != nil {
		t.Fatalf("OpenPosition failed: %v", err)
	}
	if string(result.JSON) != `{"dealReference":"ref-1"}` {
		t.Errorf("expected deal reference payload, got %q", result.JSON)
	}
}

func TestClient_PricesBuildsQueryWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" {
			w.Header().Set(HeaderCST, "abc")
			w.Header().Set(HeaderSecurityToken, "xyz")
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.URL.Path != "/prices/GOLD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("resolution") != "HOUR" || query.Get("max") != "50" {
			t.Errorf("unexpected query %v", query)
		}
		if query.Get("from") != "2026-01-02T00:00:00" {
			t.Errorf("unexpected from %q", query.Get("from"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prices":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()
	if err := client.SelectEnvironment("demo"); err != nil {
		t.Fatalf("SelectEnvironment failed: %v", err)
	}

	_, err := client.Prices(context.Background(), "GOLD", PriceQuery{
		Resolution: "HOUR",
		Max:        50,
		From:       time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Prices failed: %v", err)
	}
}

func TestClient_LogoutInvalidatesEvenWhenUpstreamFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session" && r.Method == http.MethodPost {
			w.Header().Set(HeaderCST, "abc")
			w.Header().Set(HeaderSecurityToken, "xyz")
			w.WriteHeader(http.StatusOK)
			return
		}
		// Upstream logout rejected; local tokens must still be dropped.
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"errorCode":"error.internal"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()
	if err := client.SelectEnvironment("demo"); err != nil {
		t.Fatalf("SelectEnvironment failed: %v", err)
	}
	if err := client.Session().Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := client.Logout(context.Background()); err == nil {
		t.Error("expected upstream logout error to propagate")
	}
	if client.Session().Authenticated() {
		t.Error("expected tokens to be cleared after logout")
	}
}
