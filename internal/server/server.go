// Package server exposes report sessions over a JSON HTTP API.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/sales-pivot/internal/report"
	"github.com/Veraticus/sales-pivot/internal/service"
	"github.com/Veraticus/sales-pivot/internal/session"
)

// shutdownTimeout bounds how long in-flight requests may run after shutdown starts.
const shutdownTimeout = 10 * time.Second

// Options configures the HTTP server.
type Options struct {
	Addr      string
	ExportDir string // Directory for server-side exports; empty disables them
	DevMode   bool
	TLS       *tls.Config // Serves HTTPS when set
}

// Server serves the report API of one session.
type Server struct {
	router  *gin.Engine
	handler *Handler
	logger  *slog.Logger
	opts    Options
}

// New creates a server over sess. store backs the reference endpoints.
func New(sess *session.Session, store service.ReferenceStore, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:  router,
		handler: NewHandler(sess, store, report.NewExcelWriter(logger), opts.ExportDir, logger),
		logger:  logger,
		opts:    opts,
	}

	api := router.Group("/api")
	s.handler.RegisterRoutes(api)

	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig:         s.opts.TLS,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving report API", "addr", s.opts.Addr, "tls", s.opts.TLS != nil)
		if s.opts.TLS != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down report API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
