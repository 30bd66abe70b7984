// Package health serves the liveness, readiness and metrics endpoints.
package health

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// State is updated by the dispatcher and the shutdown path and read by the
// HTTP handlers.
type State struct {
	connected       atomic.Bool
	startupComplete atomic.Bool
	shuttingDown    atomic.Bool
	unhealthy       atomic.Bool
}

func (s *State) SetConnected(connected bool) {
	s.connected.Store(connected)
}

func (s *State) SetStartupComplete() {
	s.startupComplete.Store(true)
}

func (s *State) SetShuttingDown() {
	s.shuttingDown.Store(true)
}

func (s *State) SetUnhealthy(unhealthy bool) {
	s.unhealthy.Store(unhealthy)
}

func (s *State) Live() bool {
	return !s.shuttingDown.Load()
}

func (s *State) Ready() bool {
	return s.Live() && !s.unhealthy.Load() && s.connected.Load() && s.startupComplete.Load()
}

func NewRouter(state *State, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health/live", func(c *gin.Context) {
		if !state.Live() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		body := gin.H{
			"connected":        state.connected.Load(),
			"startup_complete": state.startupComplete.Load(),
			"shutting_down":    state.shuttingDown.Load(),
		}
		if !state.Ready() {
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}

type Server struct {
	server *http.Server
	logger *zap.SugaredLogger
}

func NewServer(addr string, router http.Handler, logger *zap.SugaredLogger) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Start() {
	go func() {
		s.logger.Infow("http server listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("http server stopped", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
