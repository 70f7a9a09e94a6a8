package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vango-dev/marketplace/internal/installer"
	"github.com/vango-dev/marketplace/internal/registry"
	"github.com/vango-dev/marketplace/internal/telemetry"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Options configures the API server.
type Options struct {
	Registry  *registry.Registry
	Installer *installer.Installer

	// Events streams installer changes. Nil creates a hub that receives
	// nothing unless the caller wires it to the installer.
	Events *EventHub

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// Server is the marketplace HTTP API.
type Server struct {
	registry  *registry.Registry
	installer *installer.Installer
	events    *EventHub
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	router    chi.Router
}

// New creates the server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	events := opts.Events
	if events == nil {
		events = NewEventHub(logger, opts.Metrics)
	}

	s := &Server{
		registry:  opts.Registry,
		installer: opts.Installer,
		events:    events,
		metrics:   opts.Metrics,
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plugins", s.handleListPlugins)
		r.Get("/plugins/{namespace}/{name}", s.handleGetPlugin)

		r.Get("/installed", s.handleListInstalled)
		r.Get("/outdated", s.handleOutdated)
		r.Route("/installed/{namespace}/{name}", func(r chi.Router) {
			r.Get("/", s.handleGetInstalled)
			r.Post("/", s.handleInstall)
			r.Delete("/", s.handleRemove)
			r.Post("/update", s.handleUpdate)
			r.Patch("/config", s.handleConfig)
		})

		r.Get("/events", s.events.ServeHTTP)
	})

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Events returns the event hub.
func (s *Server) Events() *EventHub {
	return s.events
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	s.logger.Info("marketplace API listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.events.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.events.Close()
	err := httpServer.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	s.logger.Info("marketplace API stopped")
	return err
}

// requestLogger logs each request and records request metrics by route
// pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		s.metrics.ObserveRequest(r.Method, route, status, elapsed)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
