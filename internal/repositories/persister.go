package repositories

import (
	"context"

	"chat-node/internal/models"
)

// Persister joins the conversation and message tables into the shape the
// conversation store restores from.
type Persister struct {
	conversations ConversationRepository
	messages      MessageRepository
}

func NewPersister(conversations ConversationRepository, messages MessageRepository) *Persister {
	return &Persister{conversations: conversations, messages: messages}
}

func (p *Persister) SaveConversation(ctx context.Context, conv models.Conversation) error {
	return p.conversations.SaveConversation(ctx, conv)
}

func (p *Persister) SaveMessage(ctx context.Context, msg models.ChatMessage) error {
	return p.messages.SaveMessage(ctx, msg)
}

// LoadConversations attaches each stored message to its conversation.
// Messages whose conversation header is missing are skipped.
func (p *Persister) LoadConversations(ctx context.Context) ([]models.Conversation, error) {
	convs, err := p.conversations.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	msgs, err := p.messages.ListMessages(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(convs))
	for i := range convs {
		index[convs[i].ID] = i
	}
	for _, m := range msgs {
		i, ok := index[m.ConversationID]
		if !ok {
			continue
		}
		convs[i].Messages = append(convs[i].Messages, m)
	}
	return convs, nil
}
