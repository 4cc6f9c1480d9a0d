// Package health exposes the HTTP health and metrics endpoints for container probes.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"tg_joke_bot/internal/logging"
)

const (
	checkTimeout       = 2 * time.Second
	readHeaderTimeout  = 2 * time.Second
	healthListenPrefix = ":"

	statusOK       = "ok"
	statusDegraded = "degraded"
	statusError    = "error"
)

// Checker reports whether a dependency is healthy.
type Checker interface {
	Check(ctx context.Context) error
}

// Checks lists the probed dependencies. Mongo is nil when statistics live in files.
type Checks struct {
	Stats Checker
	Mongo Checker
}

// Server hosts the health endpoint and owns the underlying HTTP server.
type Server struct {
	server *http.Server
	logger *logrus.Entry
	checks Checks
}

type response struct {
	Status string `json:"status"`
	Stats  string `json:"stats,omitempty"`
	Mongo  string `json:"mongo,omitempty"`
}

// NewServer constructs a server exposing GET /healthz and, when metrics is not
// nil, GET /metrics on the provided port.
func NewServer(port int, checks Checks, metrics http.Handler, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger: logger,
		checks: checks,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf("%s%d", healthListenPrefix, port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// ListenAndServe starts the health server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "health_listen",
		"addr":  s.server.Addr,
	}).Info("starting health server")

	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("event", "health_stopped").Info("health server stopped")
			return nil
		}

		return fmt.Errorf("health server listen: %w", err)
	}

	s.logger.WithField("event", "health_stopped").Info("health server stopped")
	return nil
}

// Shutdown gracefully stops the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := response{Status: statusOK}

	ctx := r.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if s.checks.Stats == nil {
		resp.Stats = statusError
		s.logger.WithField("event", "health_stats_missing").Warn("stats checker is not configured for health endpoint")
	} else if err := s.probe(ctx, s.checks.Stats); err != nil {
		resp.Stats = statusError
		s.logger.WithField("event", "health_stats_error").WithError(err).Warn("last statistics persist failed")
	}

	if s.checks.Mongo != nil {
		if err := s.probe(ctx, s.checks.Mongo); err != nil {
			resp.Mongo = statusError
			s.logger.WithField("event", "health_mongo_error").WithError(err).Warn("mongo ping failed during health check")
		}
	}

	if resp.Stats != "" || resp.Mongo != "" {
		resp.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithField("event", "health_write_error").WithError(err).Error("failed to encode health response")
	}
}

func (s *Server) probe(ctx context.Context, checker Checker) error {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return checker.Check(checkCtx)
}
