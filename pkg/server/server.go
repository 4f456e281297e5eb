// Package server provides the gateway's inbound HTTP server.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"capgw/pkg/config"
	"capgw/pkg/gateway"
	"capgw/pkg/gateway/middleware"
	"capgw/pkg/telemetry/metrics"
)

// Server is the inbound HTTP server fronting the platform client.
type Server struct {
	config       *config.GatewayConfig
	gateway      *gateway.Gateway
	collector    *metrics.Collector // nil when metrics are disabled
	metricsPath  string
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new gateway server. collector may be nil to
// disable the scrape endpoint and inbound instrumentation.
func NewServer(cfg *config.GatewayConfig, gw *gateway.Gateway, collector *metrics.Collector, metricsPath string) *Server {
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return &Server{
		config:       cfg,
		gateway:      gw,
		collector:    collector,
		metricsPath:  metricsPath,
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	if s.config.TLS.Enabled {
		tlsConfig, err := s.configureTLS()
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tlsConfig
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server",
			"address", s.config.ListenAddress,
			"tls_enabled", s.config.TLS.Enabled,
		)

		var err error
		if s.config.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(s.config.TLS.CertFile, s.config.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	s.gateway.Routes(mux)
	if s.collector != nil {
		mux.Handle(s.metricsPath, s.collector.Handler())
	}

	var handler http.Handler = mux

	handler = middleware.Timeout(s.config.WriteTimeout)(handler)
	handler = middleware.CORS(s.convertCORSConfig())(handler)
	if s.collector != nil {
		handler = middleware.Instrument(s.collector.ObserveInbound)(handler)
	}
	// RequestID must wrap Logging so completion lines carry the ID.
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(handler)

	return handler
}

// configureTLS builds the TLS listener configuration.
func (s *Server) configureTLS() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(s.config.TLS.CertFile, s.config.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// convertCORSConfig maps the config section onto the middleware config.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:        s.config.CORS.Enabled,
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: s.config.CORS.AllowedMethods,
		AllowedHeaders: s.config.CORS.AllowedHeaders,
		MaxAge:         s.config.CORS.MaxAge,
	}
}
