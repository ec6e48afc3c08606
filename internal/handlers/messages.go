package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-node/internal/models"
	"chat-node/internal/telemetry"
)

type messageService interface {
	Send(ctx context.Context, target, content string) (models.SendReceipt, error)
	SendFile(ctx context.Context, target, content string, info models.FileInfo) (models.SendReceipt, error)
}

// MessageHandler serves the local send endpoint.
type MessageHandler struct {
	auditor
	messages messageService
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(messages messageService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{auditor: auditor{audit: audit}, messages: messages}
}

type sendMessageRequest struct {
	Target   string           `json:"target" binding:"required"`
	Content  string           `json:"content"`
	FileInfo *models.FileInfo `json:"file_info"`
}

type sendMessageResponse struct {
	models.SendReceipt
	Status string `json:"status"`
}

// SendMessage handles POST /api/messages. Target is a node identity for a
// direct message or a group id.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		receipt models.SendReceipt
		err     error
	)
	if req.FileInfo != nil {
		receipt, err = h.messages.SendFile(c.Request.Context(), req.Target, req.Content, *req.FileInfo)
	} else {
		receipt, err = h.messages.Send(c.Request.Context(), req.Target, req.Content)
	}
	if err != nil {
		h.emitAudit(c, "ERROR", "message rejected")
		writeError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Message sent")
	c.JSON(http.StatusCreated, sendMessageResponse{SendReceipt: receipt, Status: receipt.Replication.Status()})
}
