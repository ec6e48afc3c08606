package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/models"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(zap.NewNop())

	hub.AddClient("alice.os|bob.os", nil, ConnInfo{})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected conversation room to be created")
	}

	hub.RemoveClient("alice.os|bob.os", nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected conversation room to be removed")
	}
}

func TestBroadcastWithoutClientsIsNoop(t *testing.T) {
	hub := NewHub(zap.NewNop())

	assert.NotPanics(t, func() {
		hub.MessageStored(models.ChatMessage{ID: "m1", ConversationID: "c"})
		hub.ConversationUpdated(models.ConversationSummary{ID: "c"})
	})
}

type stubLookup struct{}

func (stubLookup) ListMessages(_ context.Context, id string) ([]models.ChatMessage, error) {
	if id != "alice.os|bob.os" {
		return nil, apperrors.ErrConversationNotFound
	}
	return []models.ChatMessage{}, nil
}

func newLiveServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewLiveHandler(hub, stubLookup{}, zap.NewNop())
	r := gin.New()
	r.GET("/ws", handler.HandleFeed)
	r.GET("/ws/conversations/:conversation_id", handler.HandleConversation)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, room string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.rooms[room]) == n
	}, time.Second, 10*time.Millisecond)
}

func TestConversationClientReceivesMessage(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newLiveServer(t, hub)
	conn := dial(t, srv, "/ws/conversations/alice.os%7Cbob.os")
	waitForClients(t, hub, "alice.os|bob.os", 1)

	hub.MessageStored(models.ChatMessage{ID: "m1", ConversationID: "alice.os|bob.os", Content: "hi"})

	var event models.MessageEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "message", event.Type)
	require.NotNil(t, event.Message)
	assert.Equal(t, "m1", event.Message.ID)
}

func TestFeedReceivesConversationUpdates(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newLiveServer(t, hub)
	conn := dial(t, srv, "/ws")
	waitForClients(t, hub, feedRoom, 1)

	hub.ConversationUpdated(models.ConversationSummary{ID: "group_g", IsGroup: true})

	var event models.MessageEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "conversation", event.Type)
	require.NotNil(t, event.Conversation)
	assert.Equal(t, "group_g", event.Conversation.ID)
}

func TestUnknownConversationIsRejected(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newLiveServer(t, hub)

	resp, err := http.Get(srv.URL + "/ws/conversations/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStalledClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := newLiveServer(t, hub)
	dial(t, srv, "/ws")
	waitForClients(t, hub, feedRoom, 1)

	big := strings.Repeat("x", 128<<10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			hub.MessageStored(models.ChatMessage{ID: "m", ConversationID: "alice.os|bob.os", Content: big})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked on a client that never reads")
	}
	waitForClients(t, hub, feedRoom, 0)
}

func TestRemoveClientTwiceIsSafe(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.AddClient("c", nil, ConnInfo{})

	assert.NotPanics(t, func() {
		hub.RemoveClient("c", nil)
		hub.RemoveClient("c", nil)
		hub.MessageStored(models.ChatMessage{ID: "m1", ConversationID: "c"})
	})
}
