package models

// Conversation is a direct or group chat thread as seen by this node.
type Conversation struct {
	ID           string        `json:"id"`
	Participants []string      `json:"participants"`
	Messages     []ChatMessage `json:"messages"`
	LastUpdated  string        `json:"last_updated"`
	IsGroup      bool          `json:"is_group"`
	GroupName    string        `json:"group_name,omitempty"`
	CreatedBy    string        `json:"created_by,omitempty"`
}

// ConversationSummary is the list view of a conversation.
type ConversationSummary struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
	LastUpdated  string   `json:"last_updated"`
	IsGroup      bool     `json:"is_group"`
	GroupName    string   `json:"group_name,omitempty"`
}

// HasParticipant checks membership.
func (c Conversation) HasParticipant(identity string) bool {
	for _, p := range c.Participants {
		if p == identity {
			return true
		}
	}
	return false
}

// HasMessage checks whether a message id is already stored.
func (c Conversation) HasMessage(id string) bool {
	for _, m := range c.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Summary projects the conversation for listing.
func (c Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:           c.ID,
		Participants: append([]string(nil), c.Participants...),
		LastUpdated:  c.LastUpdated,
		IsGroup:      c.IsGroup,
		GroupName:    c.GroupName,
	}
}

// Clone returns a deep copy so callers never share slices with the store.
func (c Conversation) Clone() Conversation {
	out := c
	out.Participants = append([]string(nil), c.Participants...)
	out.Messages = make([]ChatMessage, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = m.Clone()
	}
	return out
}

// Clone returns a deep copy of the message.
func (m ChatMessage) Clone() ChatMessage {
	out := m
	if m.Recipients != nil {
		out.Recipients = append([]string{}, m.Recipients...)
	}
	if m.FileInfo != nil {
		info := *m.FileInfo
		out.FileInfo = &info
	}
	return out
}
