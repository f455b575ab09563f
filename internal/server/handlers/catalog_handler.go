package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fabienpiette/partfox/internal/middleware"
	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/services"
)

// CatalogHandler handles the catalog reference data endpoints
type CatalogHandler struct {
	container *services.Container
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(container *services.Container) *CatalogHandler {
	return &CatalogHandler{
		container: container,
	}
}

// GetManufacturers lists vehicle manufacturers sorted by name
func (h *CatalogHandler) GetManufacturers(c *gin.Context) {
	refs, err := h.container.GetSearchService().Manufacturers(c.Request.Context())
	h.respond(c, refs, err, "Falha ao buscar montadoras")
}

// GetFamilies lists product families sorted by name
func (h *CatalogHandler) GetFamilies(c *gin.Context) {
	refs, err := h.container.GetSearchService().Families(c.Request.Context())
	h.respond(c, refs, err, "Falha ao buscar famílias")
}

// GetSubfamilies lists the product groups of one family
func (h *CatalogHandler) GetSubfamilies(c *gin.Context) {
	familyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		middleware.AbortWithProblem(c, http.StatusBadRequest, "Bad Request", "ID de família inválido")
		return
	}

	refs, err := h.container.GetSearchService().Subfamilies(c.Request.Context(), familyID)
	h.respond(c, refs, err, "Falha ao buscar subfamílias")
}

func (h *CatalogHandler) respond(c *gin.Context, refs []models.Reference, err error, detail string) {
	if err != nil {
		h.container.GetLogger().WithError(err).WithField("request_id", middleware.GetRequestID(c)).Warn(detail)
		middleware.AbortWithProblem(c, http.StatusBadGateway, "Bad Gateway", detail)
		return
	}
	c.JSON(http.StatusOK, refs)
}
