package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fabienpiette/partfox/internal/config"
	"github.com/fabienpiette/partfox/internal/middleware"
	"github.com/fabienpiette/partfox/internal/server/handlers"
	"github.com/fabienpiette/partfox/internal/services"
)

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config    *config.Config
	container *services.Container
	router    *gin.Engine
	server    *http.Server
	logger    *logrus.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(cfg *config.Config, container *services.Container) *HTTPServer {
	// Set Gin mode based on configuration
	switch cfg.Environment {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	logger := container.GetLogger()

	server := &HTTPServer{
		config:    cfg,
		container: container,
		router:    router,
		logger:    logger,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}

	return server
}

// Router exposes the gin engine
func (s *HTTPServer) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.Infof("Starting HTTP server on %s", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown() error {
	s.logger.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// setupMiddleware configures middleware
func (s *HTTPServer) setupMiddleware() {
	// Request ID middleware
	s.router.Use(middleware.RequestID())

	// Logger middleware
	s.router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] \"%s %s %s %d %s \"%s\" %s\" %s\n",
			param.TimeStamp.Format("2006-01-02 15:04:05"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
			param.Keys["request_id"],
		)
	}))

	// Recovery middleware
	s.router.Use(gin.Recovery())

	// CORS middleware
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Client-ID")
		c.Header("Access-Control-Expose-Headers", middleware.RequestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
}

// setupRoutes configures all API routes
func (s *HTTPServer) setupRoutes() {
	systemHandler := handlers.NewSystemHandler(s.container)

	// Health check endpoints (no catalog token required)
	s.router.GET("/health", systemHandler.Health)
	s.router.GET("/metrics", systemHandler.Metrics)

	// API v1 routes
	v1 := s.router.Group("/api/v1")

	// WebSocket endpoint
	v1.GET("/ws/autocomplete", systemHandler.WebSocket)

	// Search history is local, no catalog token required
	historyHandler := handlers.NewHistoryHandler(s.container)
	v1.GET("/pesquisas/recentes", historyHandler.GetRecent)
	v1.GET("/pesquisas/populares", historyHandler.GetPopular)

	// Catalog routes
	catalog := v1.Group("")
	catalog.Use(middleware.RequireCatalogToken(s.container.GetTokenSource(), s.logger))

	searchHandler := handlers.NewSearchHandler(s.container)
	catalog.GET("/pesquisar", searchHandler.Search)
	catalog.GET("/autocomplete", searchHandler.Autocomplete)

	productHandler := handlers.NewProductHandler(s.container)
	catalog.GET("/produto_detalhes", productHandler.GetProductDetail)

	catalogHandler := handlers.NewCatalogHandler(s.container)
	catalog.GET("/montadoras", catalogHandler.GetManufacturers)
	catalog.GET("/familias", catalogHandler.GetFamilies)
	catalog.GET("/familias/:id/subfamilias", catalogHandler.GetSubfamilies)
}
