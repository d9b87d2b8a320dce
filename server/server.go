// Package server wraps the HTTP listener and the staged graceful shutdown.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rmitbot/robot-gateway/session"
)

var log = logrus.WithField("component", "server")

// Server is the HTTP front of the gateway.
type Server struct {
	httpServer *http.Server
}

func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// Start blocks serving requests until the listener is shut down.
func (s *Server) Start() {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server failed")
	}
}

// SessionCloser force-closes every downstream session.
type SessionCloser interface {
	CloseAll(reason string)
}

// Shutdown drains the gateway in order: stop accepting requests, close the
// downstream sessions, wait for in-flight work, then let the caller tear
// down the upstream side.
func (s *Server) Shutdown(ctx context.Context, sessions SessionCloser, registry *session.Registry) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	log.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	log.Info("closing downstream sessions")
	sessions.CloseAll("Server shutting down")

	log.Info("waiting for pending operations")
	done := make(chan struct{})
	go func() {
		registry.WaitForCompletion()
		close(done)
	}()

	select {
	case <-done:
		log.Info("all operations completed")
	case <-shutdownCtx.Done():
		log.Warn("shutdown timeout exceeded, forcing exit")
	}
}
