// Package server exposes document extraction over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"docextract/internal/logger"
	"docextract/pkg/services"
)

const shutdownTimeout = 10 * time.Second

// Config holds the HTTP settings.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Server is the HTTP front end for a DocumentExtractor.
type Server struct {
	cfg    Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New builds a server with all routes and middleware registered.
func New(cfg Config, extractor services.DocumentExtractor) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}

	engine := gin.New()
	// Large uploads spill to disk above this size
	engine.MaxMultipartMemory = 32 << 20
	engine.Use(RequestID(), AccessLog(), Recovery(), CORS(cfg.AllowedOrigins))

	RegisterRoutes(engine, NewExtractHandler(extractor, cfg.MaxUploadBytes))

	return &Server{
		cfg:    cfg,
		engine: engine,
		log:    logger.WithComponent("server"),
	}
}

// RegisterRoutes attaches the API routes to r.
func RegisterRoutes(r *gin.Engine, h *ExtractHandler) {
	r.GET("/health", h.Health)
	r.POST("/extract", h.Extract)
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
