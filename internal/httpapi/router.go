// Package httpapi exposes the service over a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fjacquet/finagent/internal/logging"
)

// NewRouter builds the chi router with middleware and routes.
func NewRouter(h *Handlers, allowedOrigins []string, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(CORS(allowedOrigins))

	r.Get("/health", h.Health)
	r.Get("/accounts", h.ListAccounts)
	r.Post("/access_tokens", h.AddAccessToken)
	r.Post("/fetch_transactions", h.FetchTransactions)
	r.Get("/dashboard", h.Dashboard)
	r.Post("/generate_insights", h.GenerateInsights)
	r.Get("/insights", h.ListInsights)
	r.Get("/transactions/adjusted", h.AdjustedTransactions)
	r.Delete("/data", h.ClearData)

	return r
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, handler http.Handler, readTimeout time.Duration, logger logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readTimeout,
			ReadTimeout:       readTimeout,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", logging.F("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	return s.srv.Shutdown(shutdownCtx)
}
