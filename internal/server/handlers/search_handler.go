package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fabienpiette/partfox/internal/middleware"
	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/services"
)

// SearchHandler handles product search and autocomplete endpoints
type SearchHandler struct {
	container *services.Container
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(container *services.Container) *SearchHandler {
	return &SearchHandler{
		container: container,
	}
}

// Search runs a term or category product search. Upstream failures are
// reported in the body status, never as an HTTP error.
func (h *SearchHandler) Search(c *gin.Context) {
	request, apiErr := ParseSearchRequest(c)
	if apiErr != nil {
		apiErr.RequestID = middleware.GetRequestID(c)
		c.JSON(apiErr.Status, apiErr)
		return
	}

	response := h.container.GetSearchService().Search(c.Request.Context(), request)
	c.JSON(http.StatusOK, response)
}

// Autocomplete returns live suggestions for a prefix
func (h *SearchHandler) Autocomplete(c *gin.Context) {
	prefix := strings.ToLower(strings.TrimSpace(c.Query("prefix")))
	if prefix == "" {
		c.JSON(http.StatusOK, models.AutocompleteResponse{Suggestions: []string{}})
		return
	}

	suggestions := h.container.GetSearchService().Suggest(c.Request.Context(), prefix)
	c.JSON(http.StatusOK, models.AutocompleteResponse{Suggestions: suggestions})
}

// ParseSearchRequest builds a search request from the query string. Numeric
// parameters that do not parse produce a 400 problem.
func ParseSearchRequest(c *gin.Context) (*models.SearchRequest, *models.APIError) {
	request := &models.SearchRequest{
		Term:          c.Query("termo"),
		Plate:         c.Query("placa"),
		Brand:         c.Query("marca"),
		FamilyName:    c.Query("familia_nome"),
		SubfamilyName: c.Query("subfamilia_nome"),
		SortBy:        c.DefaultQuery("ordenar_por", "nome"),
		Order:         c.DefaultQuery("ordem", "asc"),
		Page:          1,
		UseCache:      c.Query("cache") != "false",
	}

	apiErr := models.NewAPIError(http.StatusBadRequest, "Bad Request", "Parâmetros de pesquisa inválidos", c.Request.URL.Path)

	if v, ok := intQuery(c, "familia_id", apiErr); ok {
		request.FamilyID = v
	}
	if v, ok := intQuery(c, "subfamilia_id", apiErr); ok {
		request.SubfamilyID = v
	}
	if v, ok := intQuery(c, "pagina", apiErr); ok && v != nil {
		request.Page = *v
	}

	if len(apiErr.Errors) > 0 {
		return nil, apiErr
	}
	return request, nil
}

// intQuery parses an optional integer query parameter, recording a
// validation error on apiErr when it is malformed
func intQuery(c *gin.Context, name string, apiErr *models.APIError) (*int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		apiErr.AddValidationError(name, "invalid_integer", "deve ser um número inteiro")
		return nil, false
	}
	return &v, true
}
