// Package server exposes the advisory pipeline over HTTP: one query
// endpoint plus health and metrics surfaces.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fingate-ai/fingate/pkg/agent"
	"github.com/fingate-ai/fingate/pkg/telemetry"
)

// Server serves the query API. Construct with New, start with Start, stop
// with Shutdown.
type Server struct {
	orchestrator *agent.Orchestrator
	directory    UserDirectory
	logger       *slog.Logger
	metrics      *telemetry.Metrics
	httpServer   *http.Server
	listener     net.Listener
}

// New constructs a Server bound to addr. A nil directory falls back to the
// seeded example users; nil metrics disables the /metrics surface.
func New(addr string, orchestrator *agent.Orchestrator, directory UserDirectory, logger *slog.Logger, metrics *telemetry.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if directory == nil {
		directory = NewSeededDirectory()
	}
	s := &Server{
		orchestrator: orchestrator,
		directory:    directory,
		logger:       logger,
		metrics:      metrics,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.buildHandler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/queries", s.handleQuery)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return otelhttp.NewHandler(s.instrument(mux), "fingate.server")
}

// instrument records request counts and latency per path.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.metrics.RecordHTTPRequest(r.URL.Path, strconv.Itoa(recorder.status), time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Start binds the listener and begins serving in the background. It returns
// once the listener is bound, so Addr is immediately usable.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.logger.Info("server listening", "addr", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address. Useful when configured with :0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the routing stack for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
