// Package api exposes the journal over HTTP for the web frontend.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"forex-journal/internal/session"
	"forex-journal/internal/store"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	// JWTSecret verifies bearer tokens. Empty enables the X-User-ID header.
	JWTSecret      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ProductionMode bool
	Version        string
	// RateLimit is requests per second per user; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// Server represents the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	store      store.TradeStore
	sessions   *session.Registry
	config     Config
	logger     zerolog.Logger
}

// NewServer creates a new API server over the given store and sessions.
func NewServer(config Config, st store.TradeStore, sessions *session.Registry, logger zerolog.Logger) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(logger))

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	if len(config.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = config.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", headerUserID, headerRequestID}
	corsConfig.ExposeHeaders = []string{"Content-Length", headerRequestID}
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:   router,
		store:    st,
		sessions: sessions,
		config:   config,
		logger:   logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.Use(authMiddleware(s.config.JWTSecret))
	if s.config.RateLimit > 0 {
		api.Use(rateLimitMiddleware(newUserLimiter(s.config.RateLimit, s.config.RateBurst)))
	}
	{
		api.GET("/trades", s.handleListTrades)
		api.POST("/trades", s.handleCreateTrade)
		api.GET("/trades/:id", s.handleGetTrade)
		api.PUT("/trades/:id", s.handleUpdateTrade)
		api.DELETE("/trades/:id", s.handleDeleteTrade)

		api.GET("/stats", s.handleStats)
		api.GET("/calendar", s.handleCalendar)
		api.GET("/pairs", s.handlePairs)
		api.GET("/series", s.handleSeries)
		api.GET("/strategies", s.handleStrategies)
	}
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops. After Shutdown it
// returns nil at once.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.config.Addr).Bool("auth", s.config.JWTSecret != "").Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// handleHealth reports store reachability and, for guarded backends, the
// circuit breaker counters.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	err := s.store.Ping(ctx)

	body := gin.H{
		"status":  "healthy",
		"store":   "ok",
		"version": s.config.Version,
		"time":    time.Now().Format(time.RFC3339),
	}
	if g, ok := s.store.(*store.GuardedStore); ok {
		body["circuit"] = g.Breaker().Stats()
	}

	if err != nil {
		s.logger.Warn().Err(err).Msg("Health check failed")
		body["status"] = "unhealthy"
		body["store"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
