package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-node/internal/middleware"
	"chat-node/internal/observability"
	"chat-node/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}

	requestID := c.GetHeader(observability.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

type auditor struct {
	audit *telemetry.AuditEmitter
}

func (a auditor) emitAudit(c *gin.Context, level, text string) {
	if a.audit == nil {
		return
	}
	a.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c))
}
