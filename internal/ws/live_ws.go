package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/models"
	"chat-node/internal/observability"
)

type conversationLookup interface {
	ListMessages(ctx context.Context, conversationID string) ([]models.ChatMessage, error)
}

// LiveHandler upgrades local UI clients onto the hub.
type LiveHandler struct {
	hub    *Hub
	query  conversationLookup
	logger *zap.Logger
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(hub *Hub, query conversationLookup, logger *zap.Logger) *LiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveHandler{hub: hub, query: query, logger: logger}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleFeed follows every conversation.
func (h *LiveHandler) HandleFeed(c *gin.Context) {
	h.serve(c, feedRoom)
}

// HandleConversation follows one known conversation.
func (h *LiveHandler) HandleConversation(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	if _, err := h.query.ListMessages(c.Request.Context(), conversationID); err != nil {
		if errors.Is(err, apperrors.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return
	}
	h.serve(c, conversationID)
}

func (h *LiveHandler) serve(c *gin.Context, room string) {
	ctx, span := otel.Tracer("chat-node/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	kind := roomKind(room)
	info := ConnInfo{
		ConnID:      newConnID(),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(room, conn, info)
	observability.IncWSActive(kind)
	publishWSEvent(ctx, kind, room, "ws_connect", info, "")

	// Clients only listen; reads detect the close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(room, conn)
			observability.DecWSActive(kind)
			publishWSEvent(context.Background(), kind, room, "ws_disconnect", info, closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(context.Background(), kind, room, "ws_error", info, closeReason)
				}
				return
			}
		}
	}()
}
