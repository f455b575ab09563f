package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fabienpiette/partfox/internal/models"
)

const (
	// RequestIDHeader carries the request ID in both directions
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
)

// RequestID tags every request with an ID, reusing the caller's when present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the ID assigned by RequestID, or ""
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AbortWithProblem writes a problem JSON response and stops the handler chain
func AbortWithProblem(c *gin.Context, status int, title, detail string) {
	apiErr := models.NewAPIError(status, title, detail, c.Request.URL.Path)
	apiErr.RequestID = GetRequestID(c)
	c.AbortWithStatusJSON(status, apiErr)
}
