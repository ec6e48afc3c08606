package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chat-node/internal/models"
)

// feedRoom holds clients that follow every conversation.
const feedRoom = ""

const (
	// writeWait bounds a single frame write to a client.
	writeWait = 10 * time.Second
	// sendBuffer is how many events a client may fall behind before it is dropped.
	sendBuffer = 64
)

var errSlowClient = errors.New("client too slow, send buffer full")

// client owns one websocket connection. Only its writer goroutine writes to conn.
type client struct {
	conn     *websocket.Conn
	info     ConnInfo
	send     chan []byte
	dropOnce sync.Once
}

// Hub maintains active websocket rooms keyed by conversation id. Broadcasts
// never block on a client; a client whose buffer is full is disconnected.
type Hub struct {
	rooms  map[string]map[*websocket.Conn]*client
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*websocket.Conn]*client),
		logger: logger,
	}
}

// AddClient registers a connection to a conversation room, or to the feed
// when conversationID is empty.
func (h *Hub) AddClient(conversationID string, conn *websocket.Conn, info ConnInfo) {
	c := &client{conn: conn, info: info, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if _, ok := h.rooms[conversationID]; !ok {
		h.rooms[conversationID] = make(map[*websocket.Conn]*client)
	}
	h.rooms[conversationID][conn] = c
	h.mu.Unlock()

	go h.writePump(conversationID, c)
}

// RemoveClient removes a websocket connection and stops its writer. It is
// safe to call more than once.
func (h *Hub) RemoveClient(conversationID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	c, ok := conns[conn]
	if !ok {
		return
	}
	delete(conns, conn)
	close(c.send)
	if len(conns) == 0 {
		delete(h.rooms, conversationID)
	}
}

// MessageStored pushes a new message to its room and to the feed.
func (h *Hub) MessageStored(msg models.ChatMessage) {
	event := models.MessageEvent{Type: "message", Message: &msg}
	h.broadcast(msg.ConversationID, event)
	h.broadcast(feedRoom, event)
}

// ConversationUpdated pushes a summary change to the feed.
func (h *Hub) ConversationUpdated(summary models.ConversationSummary) {
	h.broadcast(feedRoom, models.MessageEvent{Type: "conversation", Conversation: &summary})
}

func (h *Hub) broadcast(room string, event models.MessageEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("websocket event encode failed", zap.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for _, c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.drop(room, c, errSlowClient)
	}
}

// writePump drains the client's queue until RemoveClient closes it.
func (h *Hub) writePump(room string, c *client) {
	for payload := range c.send {
		err := c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err == nil {
			err = c.conn.WriteMessage(websocket.TextMessage, payload)
		}
		if err != nil {
			h.drop(room, c, err)
			return
		}
	}
}

// drop disconnects c. Closing the conn ends the handler's read loop, which
// does the disconnect bookkeeping.
func (h *Hub) drop(room string, c *client, reason error) {
	c.dropOnce.Do(func() {
		h.logger.Warn("websocket client dropped", zap.String("room", room), zap.String("conn_id", c.info.ConnID), zap.Error(reason))
		h.RemoveClient(room, c.conn)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		publishWSEvent(context.Background(), roomKind(room), room, "ws_error", c.info, reason.Error())
	})
}

func roomKind(room string) string {
	if room == feedRoom {
		return kindFeed
	}
	return kindConversation
}
