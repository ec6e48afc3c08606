package ws

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chat-node/internal/observability"
)

const (
	kindFeed         = "feed"
	kindConversation = "conversation"

	wsRoutingKey = "ws_events.conversations"
)

func newConnID() string {
	return uuid.NewString()
}

func publishWSEvent(ctx context.Context, kind, resourceID, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(kind, event)
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        kind,
				"resource_id": resourceID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"ip": info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
