package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
)

type Server struct {
	HTTP *http.Server
	Log  *slog.Logger
}

// NewServer wraps the router with access logging to accessLog and
// permissive CORS for dashboard front ends on other origins.
func NewServer(addr string, log *slog.Logger, accessLog io.Writer, h *Handlers) *Server {
	router := NewRouter(h)
	handler := handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet}),
		handlers.AllowedOrigins([]string{"*"}),
	)(router)
	handler = handlers.LoggingHandler(accessLog, handler)

	hs := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{HTTP: hs, Log: log}
}

// Start serves until Stop is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.Log.Info("http server starting", "addr", s.HTTP.Addr)
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.Log.Info("http server stopping")
	return s.HTTP.Shutdown(ctx)
}
