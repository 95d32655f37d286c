// Package api provides the HTTP adapter over the processing pipeline.
// It is a thin layer: requests are translated into coordinator calls and
// integration records are returned as JSON.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cobreops/invoice-triage/internal/batch"
	"github.com/cobreops/invoice-triage/internal/config"
	"github.com/cobreops/invoice-triage/internal/models"
)

// Server is the HTTP server adapter
type Server struct {
	config      config.ServerConfig
	httpServer  *http.Server
	router      *gin.Engine
	coordinator *batch.Coordinator
	metrics     *models.ProcessingMetrics
	logger      *zap.Logger
}

// NewServer creates a new HTTP server over the given coordinator.
func NewServer(cfg config.ServerConfig, coordinator *batch.Coordinator, metrics *models.ProcessingMetrics, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:      cfg,
		router:      gin.New(),
		coordinator: coordinator,
		metrics:     metrics,
		logger:      logger,
	}

	s.router.Use(gin.Recovery(), s.requestLogger())
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/invoices/process", s.handleProcess)
		v1.GET("/metrics", s.handleMetrics)
	}
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
