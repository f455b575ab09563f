package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fabienpiette/partfox/internal/auth"
)

// CatalogAuthFailure is the detail returned when no catalog token can be obtained
const CatalogAuthFailure = "Falha na autenticação com a API externa"

// RequireCatalogToken creates a middleware that makes sure a catalog access
// token can be obtained before the request reaches a handler
func RequireCatalogToken(tokens auth.TokenSource, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := tokens.Token(c.Request.Context()); err != nil {
			logger.WithError(err).WithField("request_id", GetRequestID(c)).Error("Catalog token unavailable")
			AbortWithProblem(c, http.StatusInternalServerError, "Internal Server Error", CatalogAuthFailure)
			return
		}

		c.Next()
	}
}
