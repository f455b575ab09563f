package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fabienpiette/partfox/internal/middleware"
	"github.com/fabienpiette/partfox/internal/services"
)

const (
	defaultRecentLimit  = 20
	defaultPopularLimit = 10
	defaultPopularDays  = 7
	maxHistoryLimit     = 100
)

// HistoryHandler handles the search history endpoints
type HistoryHandler struct {
	container *services.Container
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(container *services.Container) *HistoryHandler {
	return &HistoryHandler{
		container: container,
	}
}

// GetRecent returns the latest searches
func (h *HistoryHandler) GetRecent(c *gin.Context) {
	repo := h.container.GetSearchHistoryRepository()
	if repo == nil {
		middleware.AbortWithProblem(c, http.StatusServiceUnavailable, "Service Unavailable", "Histórico de pesquisas desativado")
		return
	}

	limit := boundedQuery(c, "limite", defaultRecentLimit, maxHistoryLimit)

	entries, err := repo.Recent(c.Request.Context(), limit)
	if err != nil {
		h.container.GetLogger().WithError(err).Error("Failed to load recent searches")
		middleware.AbortWithProblem(c, http.StatusInternalServerError, "Internal Server Error", "Falha ao carregar o histórico")
		return
	}

	c.JSON(http.StatusOK, gin.H{"dados": entries, "total": len(entries)})
}

// GetPopular returns the most frequent successful searches of the last days
func (h *HistoryHandler) GetPopular(c *gin.Context) {
	repo := h.container.GetSearchHistoryRepository()
	if repo == nil {
		middleware.AbortWithProblem(c, http.StatusServiceUnavailable, "Service Unavailable", "Histórico de pesquisas desativado")
		return
	}

	limit := boundedQuery(c, "limite", defaultPopularLimit, maxHistoryLimit)
	days := boundedQuery(c, "dias", defaultPopularDays, 365)

	searches, err := repo.Popular(c.Request.Context(), limit, days)
	if err != nil {
		h.container.GetLogger().WithError(err).Error("Failed to load popular searches")
		middleware.AbortWithProblem(c, http.StatusInternalServerError, "Internal Server Error", "Falha ao carregar o histórico")
		return
	}

	c.JSON(http.StatusOK, gin.H{"dados": searches, "total": len(searches), "dias": days})
}

// boundedQuery reads a positive integer parameter, falling back to def when
// absent or malformed and capping it at upper
func boundedQuery(c *gin.Context, name string, def, upper int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 1 {
		return def
	}
	if v > upper {
		return upper
	}
	return v
}
