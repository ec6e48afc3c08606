package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-node/internal/observability"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// RequestID propagates the inbound X-Request-Id or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(observability.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(observability.RequestIDHeader, requestID)
		}

		c.Set(RequestIDKey, requestID)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), requestID))
		c.Header(observability.RequestIDHeader, requestID)
		c.Next()
	}
}
