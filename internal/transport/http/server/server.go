package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vedran77/statusd/internal/logger"
	"github.com/vedran77/statusd/internal/metrics"
	"github.com/vedran77/statusd/internal/transport/http/handlers"
	"github.com/vedran77/statusd/internal/transport/http/middleware"
)

// Deps holds what the routes need.
type Deps struct {
	Logger   logger.Logger
	Metrics  *metrics.Metrics
	Statuses *handlers.StatusHandler
	System   *handlers.SystemHandler
	Stream   http.Handler // nil disables /statuses/stream

	RequestTimeout time.Duration
}

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http   *http.Server
	logger logger.Logger
}

func New(addr string, d Deps) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: 5 * time.Second,
		// No Read/WriteTimeout: they would also cut off long-lived stream
		// connections. API requests are bounded by RequestTimeout instead.
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return &Server{http: s, logger: d.Logger}
}

// NewRouter builds the chi router with global middlewares and every route.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Log(d.Logger))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/ping", d.System.Ping)
	r.Get("/health", d.System.Health)
	r.Get("/ready", d.System.Ready)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		// The deadline travels in the request context down to the store.
		r.Use(middleware.Deadline(d.RequestTimeout))

		r.Post("/statuses", d.Statuses.Create)
		r.Get("/statuses", d.Statuses.List)
		r.Get("/statuses/{id}", d.Statuses.Get)
		r.Put("/statuses/{id}", d.Statuses.Update)
		r.Delete("/statuses/{id}", d.Statuses.Delete)
	})

	if d.Stream != nil {
		r.Get("/statuses/stream", d.Stream.ServeHTTP)
	}

	return r
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	// http.ErrServerClosed is expected on graceful shutdown.
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
