// Package server exposes the liveness endpoint and prometheus metrics.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"max.ks1230/expenses-bot/internal/logger"
)

type Server struct {
	srv *http.Server
}

func New(port int) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Active"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

func (s *Server) Start() {
	logger.Info("liveness endpoint listening", zap.String("addr", s.srv.Addr))
	err := s.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("liveness server stopped", zap.Error(err))
	}
}

func (s *Server) Shutdown(ctx context.Context) {
	err := s.srv.Shutdown(ctx)
	if err != nil {
		logger.Error("liveness server shutdown", zap.Error(err))
	}
}
