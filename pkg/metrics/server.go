package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/c001-ZHSH/star-plan-analysis/pkg/log"
)

const gracefulShutdownTimeout = 5 * time.Second

// Server exposes the client metrics while a long running command is active.
type Server struct {
	bindAddress string
	httpServer  *http.Server
	listener    net.Listener
}

func NewServer(bindAddress string, listener net.Listener) *Server {
	router := chi.NewRouter()
	router.Use(log.Logger(zap.L(), "metrics_server"))
	router.Handle("/metrics", promhttp.Handler())

	return &Server{
		bindAddress: bindAddress,
		listener:    listener,
		httpServer: &http.Server{
			Addr:              bindAddress,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run serves until ctx is cancelled.
func (m *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		m.httpServer.SetKeepAlivesEnabled(false)
		_ = m.httpServer.Shutdown(ctxTimeout)
		zap.S().Named("metrics_server").Info("metrics server terminated")
	}()

	zap.S().Named("metrics_server").Infof("serving metrics: %s", m.bindAddress)
	if err := m.httpServer.Serve(m.listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
