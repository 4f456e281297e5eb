package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"capgw/pkg/capital"
	"capgw/pkg/config"
	"capgw/pkg/gateway"
	"capgw/pkg/telemetry/metrics"
)

func newTestServer(t *testing.T, collector *metrics.Collector) *Server {
	t.Helper()

	client := capital.NewClient(map[capital.Environment]capital.Credentials{}, capital.ClientConfig{})
	t.Cleanup(func() { _ = client.Close() })

	gw := gateway.New(client, gateway.Options{Metrics: collector})

	cfg := &config.GatewayConfig{
		ListenAddress: "127.0.0.1:0",
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		IdleTimeout:   30 * time.Second,
	}
	return NewServer(cfg, gw, collector, "/metrics")
}

func TestSetupRoutes_CountsInboundRequests(t *testing.T) {
	collector := metrics.NewCollector(config.MetricsConfig{Enabled: true, Namespace: "capgw"})
	handler := newTestServer(t, collector).setupRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rec.Code)
	}

	n, err := testutil.GatherAndCount(collector.Registry(), "capgw_inbound_requests_total")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 inbound request sample, got %d", n)
	}
}

func TestSetupRoutes_MountsScrapeEndpoint(t *testing.T) {
	collector := metrics.NewCollector(config.MetricsConfig{Enabled: true, Namespace: "capgw"})
	handler := newTestServer(t, collector).setupRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
}

func TestSetupRoutes_MetricsDisabled(t *testing.T) {
	handler := newTestServer(t, nil).setupRoutes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when metrics are disabled, got %d", rec.Code)
	}
}
