package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-node/internal/apperrors"
)

func statusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindAlreadyExists:
		return http.StatusConflict
	case apperrors.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error onto the response. Only the classified
// message is returned; causes stay in the request log.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": apperrors.MessageOf(err), "kind": apperrors.KindOf(err)})
}
