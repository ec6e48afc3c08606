package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-node/internal/models"
)

type queryService interface {
	ListConversations(ctx context.Context) []models.ConversationSummary
	ListMessages(ctx context.Context, conversationID string) ([]models.ChatMessage, error)
	NodeID() string
}

// ConversationHandler serves the read side.
type ConversationHandler struct {
	query queryService
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(query queryService) *ConversationHandler {
	return &ConversationHandler{query: query}
}

// ListConversations returns every known conversation, most recent first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"conversations": h.query.ListConversations(c.Request.Context())})
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	msgs, err := h.query.ListMessages(c.Request.Context(), c.Param("conversation_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Node handles GET /api/node.
func (h *ConversationHandler) Node(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"node_id": h.query.NodeID()})
}
