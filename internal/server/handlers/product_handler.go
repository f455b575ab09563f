package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fabienpiette/partfox/internal/middleware"
	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/services"
)

// ProductHandler handles the product detail endpoint
type ProductHandler struct {
	container *services.Container
}

// NewProductHandler creates a new product handler
func NewProductHandler(container *services.Container) *ProductHandler {
	return &ProductHandler{
		container: container,
	}
}

// GetProductDetail looks a product up by id, name or reference code
func (h *ProductHandler) GetProductDetail(c *gin.Context) {
	lookup := models.ProductLookup{
		Name:          strings.TrimSpace(c.Query("nomeProduto")),
		ReferenceCode: strings.TrimSpace(c.Query("codigoReferencia")),
		Brand:         strings.TrimSpace(c.Query("marca")),
	}

	if raw := strings.TrimSpace(c.Query("id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.AbortWithProblem(c, http.StatusBadRequest, "Bad Request", "O parâmetro 'id' deve ser um número inteiro")
			return
		}
		lookup.ID = &id
	}

	detail, err := h.container.GetSearchService().ProductDetail(c.Request.Context(), lookup)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, detail)
	case errors.Is(err, models.ErrInvalidInput):
		middleware.AbortWithProblem(c, http.StatusBadRequest, "Bad Request", "Informe 'id', 'nomeProduto' ou 'codigoReferencia'")
	case errors.Is(err, models.ErrProductNotFound):
		middleware.AbortWithProblem(c, http.StatusNotFound, "Not Found", "Produto não encontrado")
	default:
		h.container.GetLogger().WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"kind":       models.UpstreamKind(err),
		}).Warn("Product detail lookup failed")
		middleware.AbortWithProblem(c, http.StatusBadGateway, "Bad Gateway", "Falha ao consultar o catálogo")
	}
}
