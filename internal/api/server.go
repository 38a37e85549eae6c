// Package api exposes the countdown controller over HTTP.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/countdown/internal/countdown"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Countdown is the controller surface the API drives.
type Countdown interface {
	Snapshot() countdown.Snapshot
	SetIdentity(ctx context.Context, identity string) (countdown.Snapshot, error)
	Start(ctx context.Context, days int) (countdown.Snapshot, error)
	Reset(ctx context.Context) (countdown.Snapshot, error)
	Subscribe() (<-chan countdown.Snapshot, func())
}

// Config holds the API server configuration.
type Config struct {
	ListenAddr string
}

// Server is the countdown HTTP API server.
type Server struct {
	config    Config
	countdown Countdown
	server    *http.Server
	router    *mux.Router
	listener  net.Listener
	logger    zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config, c Countdown, logger zerolog.Logger) *Server {
	router := mux.NewRouter()

	s := &Server{
		config:    cfg,
		countdown: c,
		router:    router,
		logger:    logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	// WriteTimeout is cleared per request for the event stream.
	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(LoggingMiddleware(s.logger))

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/countdown", s.handleGet).Methods("GET")
	s.router.HandleFunc("/api/countdown", s.handleStart).Methods("POST")
	s.router.HandleFunc("/api/countdown", s.handleReset).Methods("DELETE")
	s.router.HandleFunc("/api/countdown/events", s.handleEvents).Methods("GET")
	s.router.HandleFunc("/api/identity", s.handleIdentity).Methods("PUT")
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting API server")

	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}
