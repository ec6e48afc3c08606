package services

import (
	"context"
	"sort"

	"chat-node/internal/models"
	"chat-node/internal/store"
)

// QueryService is the read side used by the presentation layer.
type QueryService struct {
	store  *store.Store
	nodeID string
}

func NewQueryService(st *store.Store, nodeID string) *QueryService {
	return &QueryService{store: st, nodeID: nodeID}
}

// ListConversations returns every conversation, most recently active first.
func (s *QueryService) ListConversations(ctx context.Context) []models.ConversationSummary {
	summaries := s.store.Summaries()
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastUpdated != summaries[j].LastUpdated {
			return summaries[i].LastUpdated > summaries[j].LastUpdated
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

func (s *QueryService) ListMessages(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	return s.store.Messages(conversationID)
}

func (s *QueryService) NodeID() string {
	return s.nodeID
}
