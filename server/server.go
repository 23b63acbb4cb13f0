package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/weeksdev/duckfinder/browser"
	"github.com/weeksdev/duckfinder/log"
	"github.com/weeksdev/duckfinder/notifications"
)

// Server owns and coordinates all application components
type Server struct {
	cfg *Config

	// Components (owned by server)
	controller   *browser.Controller
	notifService *notifications.Service
	pumpDone     chan struct{}
	pumping      atomic.Bool

	// Shutdown context - cancelled when server is shutting down.
	// Long-running handlers (WebSocket) should listen to this.
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	shutdownOnce   sync.Once

	// HTTP
	router *gin.Engine
	http   *http.Server
}

// New creates a new server with all components initialized
func New(cfg *Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:            cfg,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
		pumpDone:       make(chan struct{}),
	}

	// 1. Create notifications service
	log.Info().Msg("initializing notifications service")
	s.notifService = notifications.NewService()

	// 2. Create browser controller (watcher + shell runner)
	log.Info().Msg("initializing browser controller")
	controller, err := browser.NewDefault(cfg.ToBrowserConfig())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create browser controller: %w", err)
	}
	s.controller = controller

	// 3. Setup HTTP router
	s.setupRouter()

	log.Info().Msg("server initialized successfully")
	return s, nil
}

// setupRouter creates and configures the Gin router
func (s *Server) setupRouter() {
	// Set Gin mode
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	s.router = gin.New()

	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(log.GinLogger("/api/state"))

	// CORS for development
	if s.cfg.IsDevelopment() {
		s.router.Use(s.corsMiddleware())
	}

	// Security headers (production only)
	if !s.cfg.IsDevelopment() {
		s.router.Use(s.securityHeadersMiddleware())
	}

	// Gzip compression (skip WebSocket endpoints)
	s.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/api/stream",   // WebSocket - view events
		"/api/terminal", // WebSocket - PTY
	})))

	// Trust proxy headers
	s.router.SetTrustedProxies(nil)

	// Ignore .well-known requests
	s.router.GET("/.well-known/*path", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	// Note: API routes should be set up by calling code (cmd)
	// to avoid import cycles
}

// corsMiddleware handles CORS for development environments
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && s.cfg.OriginAllowed(origin, c.Request.Host) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// securityHeadersMiddleware adds security headers for production
func (s *Server) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// Clickjacking protection
		c.Header("X-Frame-Options", "SAMEORIGIN")

		// Referrer policy - don't leak full URLs to other origins
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// StartComponents opens the start directory and begins forwarding view
// events. Start calls it; tests that serve Router() directly call it alone.
func (s *Server) StartComponents() error {
	log.Info().Msg("starting server components")

	if err := s.controller.Start(s.shutdownCtx); err != nil {
		return fmt.Errorf("failed to start browser controller: %w", err)
	}

	s.pumping.Store(true)
	go func() {
		defer close(s.pumpDone)
		s.notifService.Pump(s.controller.Events())
	}()

	log.Info().Str("dir", s.controller.CurrentDirectory()).Msg("browser ready")
	return nil
}

// Start starts all background services and the HTTP server
func (s *Server) Start() error {
	if err := s.StartComponents(); err != nil {
		return err
	}

	// Create HTTP server
	s.http = &http.Server{
		Addr:     fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:  s.router,
		ErrorLog: log.StdErrorLogger(), // Route Go's internal HTTP errors through zerolog
	}

	log.Info().
		Str("addr", s.http.Addr).
		Str("env", s.cfg.Env).
		Msg("HTTP server starting")

	// Start HTTP server (blocks)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server. Safe on a server that never
// started and on repeated calls.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.shutdown(ctx)
	})
	return err
}

func (s *Server) shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	// 1. Cancel the shutdown context to signal all long-running handlers (WebSocket)
	// This allows them to stop gracefully before we close the HTTP server
	log.Info().Msg("signaling handlers to stop")
	s.shutdownCancel()

	// Give handlers a moment to process the cancellation and close connections.
	// This prevents "response.WriteHeader on hijacked connection" warnings.
	time.Sleep(100 * time.Millisecond)

	// 2. Stop the controller: kills the live command, releases the watch,
	// and closes its event channel which ends the pump
	var result error
	if err := s.controller.Close(); err != nil {
		log.Error().Err(err).Msg("browser controller close error")
		result = err
	}
	if s.pumping.Load() {
		<-s.pumpDone
	}

	// 3. Close notification service to disconnect stream clients
	s.notifService.Shutdown()

	// 4. Shutdown HTTP server (stop accepting new requests and wait for existing ones)
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
			if result == nil {
				result = err
			}
		}
	}

	log.Info().Msg("server shutdown complete")
	return result
}

// Component accessors for API handlers
func (s *Server) Browser() *browser.Controller          { return s.controller }
func (s *Server) Notifications() *notifications.Service { return s.notifService }
func (s *Server) Router() *gin.Engine                   { return s.router }
func (s *Server) ShutdownContext() context.Context      { return s.shutdownCtx }
func (s *Server) Config() *Config                       { return s.cfg }
