// Package api provides the operational HTTP API server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridwatch/alertflow/internal/engine"
	"github.com/gridwatch/alertflow/internal/logging"
	"github.com/gridwatch/alertflow/internal/snapshot"
)

// SnapshotSource provides the current rule snapshot and refresh control.
type SnapshotSource interface {
	Current() *snapshot.Snapshot
	ForceRefresh()
}

// StatsSource reports engine evaluation counters.
type StatsSource interface {
	Stats() engine.StatsSnapshot
}

// Config contains HTTP API server configuration.
type Config struct {
	Address     string
	AuthSecret  []byte // empty disables bearer token auth
	TokenTTL    time.Duration
	ReadTimeout time.Duration
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = time.Hour
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
}

// Server is the operational HTTP API server.
type Server struct {
	config    *Config
	snapshots SnapshotSource
	stats     StatsSource
	health    *healthHandler
	server    *http.Server
	log       zerolog.Logger
}

// New creates a new API server.
func New(cfg *Config, snapshots SnapshotSource, stats StatsSource) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshot source is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:    cfg,
		snapshots: snapshots,
		stats:     stats,
		health:    newHealthHandler(),
		log:       logging.WithComponent("api"),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// RegisterHealthChecker adds a readiness checker to the server.
func (s *Server) RegisterHealthChecker(c Checker) {
	s.health.register(c)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// Run starts the HTTP server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.log.Info().Str("address", s.config.Address).Msg("HTTP API listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
