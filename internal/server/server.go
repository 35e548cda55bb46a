// Package server is the HTTP edge: authentication, request plumbing, and
// the JSON surface over the command pipeline.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Ayejay3194/business-spine/internal/auth"
)

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	http   *http.Server
}

func New(port int, logger *slog.Logger, authenticator *auth.Authenticator, handlers *Handlers) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "business-spine")
	})

	r.Get("/healthz", handlers.HandleHealth)

	// Everything under /v1 requires a valid API key.
	r.Route("/v1", func(r chi.Router) {
		if authenticator != nil {
			r.Use(AuthMiddleware(authenticator))
		}
		r.Post("/commands", handlers.HandleCommand)
		r.Post("/commands/resume", handlers.HandleResume)
		r.Get("/audit", handlers.HandleAuditList)
		r.Get("/audit/verify", handlers.HandleAuditVerify)
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
		http:   &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: r},
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
