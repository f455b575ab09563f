package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fabienpiette/partfox/internal/auth"
	"github.com/fabienpiette/partfox/internal/autocomplete"
	"github.com/fabienpiette/partfox/internal/cache"
	"github.com/fabienpiette/partfox/internal/catalog"
	"github.com/fabienpiette/partfox/internal/config"
	"github.com/fabienpiette/partfox/internal/database"
	"github.com/fabienpiette/partfox/internal/redis"
	"github.com/fabienpiette/partfox/internal/repositories"
	"github.com/fabienpiette/partfox/internal/search"
)

// Version is reported by the health and metrics endpoints
const Version = "1.0.0"

const (
	warmTimeout       = 30 * time.Second
	retentionInterval = 24 * time.Hour
)

// Container holds all the application services and manages their lifecycle
type Container struct {
	// Configuration
	config *config.Config
	logger *logrus.Logger

	// Infrastructure
	db          *database.DB
	redisClient *redis.Client

	// Repositories
	historyRepo repositories.SearchHistoryRepository
	resultCache repositories.ResultCache

	// Core Services
	tokens        auth.TokenSource
	catalogClient *catalog.Client
	engine        *autocomplete.Engine
	searchService *search.Service

	// WebSocket hub for live autocomplete
	wsHub *WebSocketHub

	// Lifecycle management
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	wg        sync.WaitGroup
	mu        sync.RWMutex
}

// NewContainer creates a new service container. db and redisClient may be
// nil: search history is then disabled and results are cached in memory.
func NewContainer(db *database.DB, redisClient *redis.Client, cfg *config.Config) (*Container, error) {
	ctx, cancel := context.WithCancel(context.Background())
	container := &Container{
		config:      cfg,
		logger:      NewLogger(cfg.Log),
		db:          db,
		redisClient: redisClient,
		startedAt:   time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Initialize repositories
	container.initializeRepositories()

	// Initialize core services
	if err := container.initializeCoreServices(); err != nil {
		cancel()
		return nil, err
	}

	// Initialize WebSocket hub
	container.wsHub = NewWebSocketHub(container.searchService, container.logger)

	return container, nil
}

// NewLogger creates the application logger at the configured level
func NewLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// Start starts all background services
func (c *Container) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Starting service container")

	// Start WebSocket hub
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.wsHub.Start()
	}()

	// Warm reference data caches
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, warmTimeout)
		defer cancel()
		_ = c.searchService.Warm(ctx)
	}()

	// Prune old search history
	if c.historyRepo != nil && c.config.Search.HistoryRetention > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.runRetention()
		}()
	}

	c.logger.Info("Service container started successfully")
}

// Stop gracefully stops all services
func (c *Container) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopOnce.Do(func() {
		c.logger.Info("Stopping service container")

		// Signal all services to stop
		c.cancel()

		if c.wsHub != nil {
			c.wsHub.Stop()
		}

		// Wait for all goroutines to finish
		c.wg.Wait()

		c.logger.Info("Service container stopped")
	})
}

func (c *Container) runRetention() {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()

	for {
		c.PruneHistory(c.ctx)
		select {
		case <-ticker.C:
		case <-c.ctx.Done():
			return
		}
	}
}

// PruneHistory deletes search history entries older than the retention window
func (c *Container) PruneHistory(ctx context.Context) int64 {
	if c.historyRepo == nil || c.config.Search.HistoryRetention <= 0 {
		return 0
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -c.config.Search.HistoryRetention)
	deleted, err := c.historyRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to prune search history")
		return 0
	}
	if deleted > 0 {
		c.logger.WithField("deleted", deleted).Info("Pruned search history")
	}
	return deleted
}

// GetSearchService returns the search service
func (c *Container) GetSearchService() *search.Service {
	return c.searchService
}

// GetTokenSource returns the catalog token source
func (c *Container) GetTokenSource() auth.TokenSource {
	return c.tokens
}

// GetWebSocketHub returns the WebSocket hub
func (c *Container) GetWebSocketHub() *WebSocketHub {
	return c.wsHub
}

// GetSearchHistoryRepository returns the history repository, nil when
// history is disabled
func (c *Container) GetSearchHistoryRepository() repositories.SearchHistoryRepository {
	return c.historyRepo
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// initializeRepositories creates all repository instances
func (c *Container) initializeRepositories() {
	if c.db != nil && c.config.Search.HistoryEnabled {
		c.historyRepo = repositories.NewSearchHistoryRepository(c.db.DB)
	}

	if c.redisClient != nil {
		c.resultCache = c.redisClient
		c.logger.Info("Caching search results in Redis")
	} else {
		c.resultCache = cache.NewMemoryCache(0)
		c.logger.Info("Redis disabled, caching search results in memory")
	}

	c.logger.Info("Repositories initialized")
}

// initializeCoreServices creates all core service instances
func (c *Container) initializeCoreServices() error {
	cc := c.config.Catalog

	if cc.StaticToken != "" {
		c.tokens = auth.StaticToken(cc.StaticToken)
	} else {
		c.tokens = auth.NewClientCredentials(auth.ClientCredentialsConfig{
			TokenURL:     cc.TokenURL,
			ClientID:     cc.ClientID,
			ClientSecret: cc.ClientSecret,
			MinTTL:       time.Duration(cc.TokenMinTTLSeconds) * time.Second,
			Timeout:      cc.Timeout(),
		}, c.logger)
	}

	c.catalogClient = catalog.NewClient(cc, c.tokens, c.logger)

	ac := c.config.Autocomplete
	matcher, err := autocomplete.NewMatcher(ac.Similarity, ac.MaxDistance, ac.MinRatio)
	if err != nil {
		return fmt.Errorf("invalid autocomplete configuration: %w", err)
	}
	c.engine = autocomplete.NewEngine(autocomplete.Options{
		HistorySize:    ac.HistorySize,
		MaxSuggestions: ac.MaxSuggestions,
		Similar:        matcher,
	}, c.logger)

	c.searchService = search.NewService(
		c.catalogClient,
		c.resultCache,
		c.historyRepo,
		c.engine,
		search.OptionsFromConfig(c.config.Search, ac),
		c.logger,
	)

	c.logger.Info("Core services initialized")
	return nil
}

// HealthCheck performs a health check on all services
func (c *Container) HealthCheck(ctx context.Context) map[string]interface{} {
	services := map[string]interface{}{}
	health := map[string]interface{}{
		"status":    "healthy",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	}

	// Check database
	if c.db != nil {
		if err := c.db.Health(); err != nil {
			services["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			health["status"] = "degraded"
		} else {
			services["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	}

	// Check Redis
	if c.redisClient != nil {
		if err := c.redisClient.Health(ctx); err != nil {
			services["redis"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			health["status"] = "degraded"
		} else {
			services["redis"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	} else {
		services["cache"] = map[string]interface{}{
			"status": "healthy",
			"driver": "memory",
		}
	}

	// Check catalog credentials
	if _, err := c.tokens.Token(ctx); err != nil {
		services["catalog_auth"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		health["status"] = "degraded"
	} else {
		services["catalog_auth"] = map[string]interface{}{
			"status": "healthy",
		}
	}

	return health
}

// GetMetrics returns application metrics
func (c *Container) GetMetrics(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"uptime":       time.Since(c.startedAt).Round(time.Second).String(),
		"version":      Version,
		"search":       c.searchService.Stats(),
		"autocomplete": c.engine.Stats(),
		"websocket": map[string]interface{}{
			"clients": c.wsHub.GetClientCount(),
		},
	}
}
