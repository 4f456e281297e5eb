// Package gateway maps inbound HTTP routes onto the platform client.
//
// The route surface has three parts: session lifecycle routes
// (login, logout, environment switch), a generic relay under /v1/api/
// that forwards method, path, query, and body to the platform, and a
// small set of convenience trading routes. Every relayed call is
// instrumented: metrics, a trace span, and an audit record.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"capgw/pkg/audit"
	"capgw/pkg/capital"
	"capgw/pkg/gateway/middleware"
	"capgw/pkg/telemetry/metrics"
	"capgw/pkg/telemetry/tracing"
)

// Gateway holds the dependencies shared by all route handlers.
type Gateway struct {
	client   *capital.Client
	recorder *audit.Recorder
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger
}

// Options carries the optional instrumentation dependencies.
// Nil fields disable the corresponding instrumentation.
type Options struct {
	Recorder *audit.Recorder
	Metrics  *metrics.Collector
	Tracer   *tracing.Tracer
}

// New creates a gateway over the given platform client.
func New(client *capital.Client, opts Options) *Gateway {
	return &Gateway{
		client:   client,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   slog.Default().With("component", "gateway"),
	}
}

// Routes registers all gateway routes on the mux.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/session", g.handleLogin)
	mux.HandleFunc("DELETE /v1/session", g.handleLogout)
	mux.HandleFunc("GET /v1/environment", g.handleGetEnvironment)
	mux.HandleFunc("PUT /v1/environment", g.handleSwitchEnvironment)

	mux.HandleFunc("/v1/api/", g.handleRelay)

	mux.HandleFunc("POST /v1/positions", g.handleOpenPosition)
	mux.HandleFunc("DELETE /v1/positions/{dealId}", g.handleClosePosition)

	mux.HandleFunc("GET /health", g.handleHealth)
	mux.HandleFunc("GET /ready", g.handleReady)
}

// dispatch runs one instrumented upstream call: trace span, metrics,
// and an audit record keyed by the inbound request ID.
func (g *Gateway) dispatch(ctx context.Context, method, path string, body any, params url.Values) (*capital.Result, error) {
	environment := string(g.client.Session().Environment())

	var span trace.Span
	if g.tracer != nil {
		ctx, span = g.tracer.Start(ctx, "upstream.request",
			attribute.String(tracing.AttrEnvironment, environment),
			attribute.String(tracing.AttrPath, path),
		)
	}

	start := time.Now()
	result, err := g.client.Request(ctx, method, path, body, params)
	g.observe(ctx, environment, method, path, result, err, time.Since(start))

	if span != nil {
		if err != nil {
			span.SetAttributes(attribute.String(tracing.AttrErrorKind, errorKind(err)))
		} else if result.Renewed {
			span.SetAttributes(attribute.Bool(tracing.AttrRenewed, true))
		}
		tracing.End(span, err)
	}
	return result, err
}

// observe feeds one completed upstream call into metrics and the audit
// trail. Never blocks the request path.
func (g *Gateway) observe(ctx context.Context, environment, method, path string, result *capital.Result, err error, elapsed time.Duration) {
	status := 0
	renewed := false
	kind := ""

	if result != nil {
		status = result.Status
		renewed = result.Renewed
	}
	if err != nil {
		kind = errorKind(err)
		status = errorStatus(err)
	}

	if g.metrics != nil {
		if err != nil {
			g.metrics.ObserveUpstreamError(environment, kind)
		}
		g.metrics.ObserveUpstream(environment, method, status, elapsed, renewed)
		g.metrics.SetSessionAuthenticated(environment, g.client.Session().Authenticated())
	}

	if g.recorder != nil {
		g.recorder.Record(&audit.Record{
			RequestID:   middleware.GetRequestID(ctx),
			Environment: environment,
			Method:      method,
			Path:        path,
			Status:      status,
			ErrorKind:   kind,
			Renewed:     renewed,
			Latency:     elapsed,
		})
	}
}
