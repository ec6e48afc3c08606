package models

// ChatMessage is a single message inside a conversation.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         string    `json:"sender"`
	Recipient      string    `json:"recipient,omitempty"`
	Recipients     []string  `json:"recipients,omitempty"`
	Content        string    `json:"content"`
	Timestamp      string    `json:"timestamp"`
	Delivered      bool      `json:"delivered"`
	FileInfo       *FileInfo `json:"file_info,omitempty"`
}

// IsGroupShape reports whether the message was addressed to a group.
func (m ChatMessage) IsGroupShape() bool {
	return m.Recipients != nil || IsGroupID(m.ConversationID)
}

// FileInfo describes an attachment held by SenderNode.
type FileInfo struct {
	FileName   string `json:"file_name"`
	FileSize   uint64 `json:"file_size"`
	MimeType   string `json:"mime_type"`
	FileID     string `json:"file_id"`
	SenderNode string `json:"sender_node"`
}

// MessageEvent is broadcast to local websocket clients.
type MessageEvent struct {
	Type         string               `json:"type"`
	Message      *ChatMessage         `json:"message,omitempty"`
	Conversation *ConversationSummary `json:"conversation,omitempty"`
}
