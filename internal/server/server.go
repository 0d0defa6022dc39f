package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"botgateway/internal/cache"
	"botgateway/internal/config"
	"botgateway/internal/core"
	"botgateway/internal/metrics"
	"botgateway/internal/relay"

	"github.com/gin-gonic/gin"
)

// Server is the HTTP gateway: thin dispatch around the upstream relay
// plus passthrough endpoints for the persistence store.
type Server struct {
	cfg    *config.Config
	logger core.Logger
	store  core.Store

	httpClient     *http.Client
	modelsCache    *cache.ModelsCache
	relay          *relay.Relay
	metricsService *metrics.MetricsService

	router      *gin.Engine
	rateLimiter *rateLimiter

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

// NewServer creates a server instance. store may be nil; the affected
// endpoints then degrade to soft errors.
func NewServer(cfg *config.Config, logger core.Logger, store core.Store) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	httpClient := createOptimizedHTTPClient(cfg.HTTPClientSettings)
	modelsCache := cache.NewModelsCache()

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		store:          store,
		httpClient:     httpClient,
		modelsCache:    modelsCache,
		relay:          relay.New(cfg, httpClient, modelsCache, logger),
		metricsService: metrics.NewMetricsService(),
		rateLimiter:    newRateLimiter(cfg.RateLimitPerMinute),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	s.setupRoutes()

	return s, nil
}

func createOptimizedHTTPClient(settings config.HTTPClientSettings) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          settings.MaxIdleConns,
		MaxIdleConnsPerHost:   settings.MaxIdleConnsPerHost,
		MaxConnsPerHost:       settings.MaxConnsPerHost,
		IdleConnTimeout:       settings.IdleConnTimeout,
		TLSHandshakeTimeout:   settings.TLSHandshakeTimeout,
		ExpectContinueTimeout: core.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
	}

	// No blanket client timeout: the chat relay arms its own deadline
	// and SSE streams outlive any sensible fixed request timeout.
	return &http.Client{
		Transport: transport,
		Timeout:   settings.RequestTimeout,
	}
}

// Run runs the server until shutdown.
func (s *Server) Run() error {
	s.setupGracefulShutdown()

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // SSE streams need longer timeout
	}

	go func() {
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("Server shutdown error: %v", err)
		}
	}()

	s.logger.Info("Server starting on port %s", s.cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		s.logger.Info("Shutdown signal received, shutting down gracefully...")
		s.shutdownCancel()
	}()
}

// Close releases server resources. Safe to call more than once.
func (s *Server) Close() error {
	if s.shutdownCancel != nil {
		s.shutdownCancel()
	}

	var closeErr error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close store: %w", err))
		}
	}

	s.httpClient.CloseIdleConnections()

	return closeErr
}
