// Package server exposes portfolio snapshots and market indices over a JSON REST API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/carteira/internal/app"
	"github.com/bobmcallan/carteira/internal/common"
)

// Server owns the HTTP listener and routes requests into the App's services.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// SetShutdownChannel sets the channel signalled by POST /api/shutdown.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer builds the router and middleware chain. Timeouts come from the
// [server] config section; the write timeout bounds a synchronous refresh.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	cfg := a.Config.Server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           applyMiddleware(mux, a.Logger, a.Config),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.GetReadTimeout(),
		WriteTimeout:      cfg.GetWriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the wrapped router, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start listens until Shutdown is called; it then returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Dur("write_timeout", s.server.WriteTimeout).
		Msg("Starting carteira API")
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and drains in-flight refreshes
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	start := time.Now()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to drain HTTP server: %w", err)
	}
	s.logger.Info().Dur("elapsed", time.Since(start)).Msg("carteira API stopped")
	return nil
}
