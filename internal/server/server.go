// Package server exposes the notebook sync and assay schema registry over
// HTTP and serves gRPC health checks.
package server

import (
	"log/slog"

	"github.com/alfredjeanlab/elnsync/internal/assay"
	"github.com/alfredjeanlab/elnsync/internal/notebook"
)

// Server holds the components the HTTP handlers call into.
type Server struct {
	notebook *notebook.Service
	registry *assay.Registry
	stream   *EventStream
	logger   *slog.Logger
}

// New returns a Server. nb may be nil when no notebook is configured;
// notebook routes then answer 503. stream may be nil, in which case the
// event stream endpoint only ever sends keepalives.
func New(nb *notebook.Service, reg *assay.Registry, stream *EventStream, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if stream == nil {
		stream = NewEventStream(logger)
	}
	return &Server{
		notebook: nb,
		registry: reg,
		stream:   stream,
		logger:   logger,
	}
}
