package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aescanero/fftdetect/internal/application/detections"
	"github.com/aescanero/fftdetect/internal/application/health"
	"github.com/aescanero/fftdetect/pkg/adapters/metrics/prometheus"
)

const (
	// DetectionsPath receives detection events
	DetectionsPath = "/api/detections"
	// DetectionStreamPath streams recorded detections over WebSocket
	DetectionStreamPath = "/api/detections/stream"
	// HealthPath reports host health
	HealthPath = "/api/health"
	// MetricsPath exposes Prometheus metrics
	MetricsPath = "/metrics"
)

// RequestJournal records raw detection request bodies
type RequestJournal interface {
	AppendRequest(clientIP string, body []byte) error
}

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	server   *http.Server
	recorder *detections.Recorder
	reporter *health.Reporter
	metrics  *prometheus.Collector
	logger   *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	// Addr is the listen address, e.g. ":3000"
	Addr     string
	Recorder *detections.Recorder
	Reporter *health.Reporter
	Journal  RequestJournal
	Metrics  *prometheus.Collector
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Outermost first: the access line must see the status written by the
	// recovery and error handlers.
	router.Use(requestIDMiddleware())
	router.Use(requestLogger(cfg.Logger, cfg.Journal))
	router.Use(metricsMiddleware(cfg.Metrics))
	router.Use(gin.CustomRecoveryWithWriter(io.Discard, recoveryHandler(cfg.Logger)))
	router.Use(errorHandler(cfg.Logger))

	s := &Server{
		router:   router,
		recorder: cfg.Recorder,
		reporter: cfg.Reporter,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Metrics
	s.router.GET(MetricsPath, gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/detections", s.handleCreateDetection)
		api.GET("/health", s.handleHealth)
	}

	s.router.NoRoute(s.handleNotFound)
	s.router.NoMethod(s.handleMethodNotAllowed)
}

// SetupWebSocket adds the live detection stream to the server
func (s *Server) SetupWebSocket(handler interface {
	HandleDetectionStream(*gin.Context)
}) {
	s.router.GET(DetectionStreamPath, handler.HandleDetectionStream)
}

// Handler returns the root handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Routes lists the registered routes
func (s *Server) Routes() gin.RoutesInfo {
	return s.router.Routes()
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Debug("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Debug("HTTP server shut down complete")
	return nil
}
