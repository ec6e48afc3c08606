package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-node/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints. /debug/audit-test pushes one
// audit event through the publisher and reports which node sent it.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, nodeID string, enabled bool) {
	if !enabled {
		return
	}

	debug := router.Group("/debug")
	debug.GET("/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured", "node_id": nodeID})
			return
		}
		requestID := requestIDFromContext(c)
		emitter.Emit(c.Request.Context(), "DEBUG", "audit pipeline check from "+nodeID, requestID)
		c.JSON(http.StatusOK, gin.H{"status": "emitted", "node_id": nodeID, "request_id": requestID})
	})
}
