/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: server.go
Description: HTTP service for protodec. Exposes decode and schema recovery over JSON,
a health check and Prometheus metrics, with OpenTelemetry request tracing.
*/

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kleascm/protodec/pkg/config"
	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "protodec"

// Server serves the protodec API
type Server struct {
	cfg      config.ServerConfig
	engine   *core.Engine
	gatherer prometheus.Gatherer
	logger   *logging.Logger
	router   *gin.Engine
}

// New builds the router. gatherer may be nil to use the default Prometheus registry.
func New(cfg config.ServerConfig, engine *core.Engine, gatherer prometheus.Gatherer, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		gatherer: gatherer,
		logger:   logger,
		router:   gin.New(),
	}
	s.router.Use(gin.Recovery(), otelgin.Middleware(serviceName), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/v1")
	v1.POST("/decode", s.handleDecode)
	v1.POST("/schema", s.handleSchema)

	if s.cfg.Metrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
	}
}

// Run listens on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", map[string]interface{}{"addr": s.cfg.Addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("Server stopped", nil)
		return nil
	}
}
