// Package server exposes the registry over HTTP/JSON and gRPC.
package server

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/alfredjeanlab/configmonkey/internal/metrics"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

// Server serves registry operations. One Server backs both transports.
type Server struct {
	registry *service.Registry
	metrics  *metrics.Collector
	logger   *slog.Logger
	validate *validator.Validate
	hub      *EventHub
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on GET /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithEventHub serves the hub's events on GET /v1/events/stream.
func WithEventHub(h *EventHub) Option {
	return func(s *Server) { s.hub = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns a Server backed by reg.
func New(reg *service.Registry, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		logger:   slog.Default(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
