package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/models"
	"chat-node/internal/observability"
)

// Persister makes the store durable across restarts.
type Persister interface {
	SaveConversation(ctx context.Context, conv models.Conversation) error
	SaveMessage(ctx context.Context, msg models.ChatMessage) error
	LoadConversations(ctx context.Context) ([]models.Conversation, error)
}

// Store is the single source of truth for conversations on this node. Every
// mutation runs under one lock, so at most one mutation is in flight.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	persister     Persister
	now           func() time.Time
	logger        *zap.Logger
}

// New builds an empty store. persister may be nil for a memory-only node.
func New(persister Persister, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		conversations: make(map[string]*models.Conversation),
		persister:     persister,
		now:           time.Now,
		logger:        logger,
	}
}

// SetClock overrides the local clock used for last_updated.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Restore loads persisted conversations into memory.
func (s *Store) Restore(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	convs, err := s.persister.LoadConversations(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range convs {
		c := conv.Clone()
		c.Messages = dedupeMessages(c.Messages)
		sortMessages(c.Messages)
		s.conversations[c.ID] = &c
	}
	s.logger.Info("conversation store restored", zap.Int("conversations", len(convs)))
	return nil
}

// Get is a read-only lookup.
func (s *Store) Get(id string) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return models.Conversation{}, false
	}
	return conv.Clone(), true
}

// GetOrCreateDirect returns the direct conversation of the sorted pair,
// creating it empty when absent.
func (s *Store) GetOrCreateDirect(ctx context.Context, a, b string) (models.Conversation, bool) {
	id := models.DirectConversationID(a, b)

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[id]; ok {
		return conv.Clone(), false
	}
	conv := &models.Conversation{
		ID:           id,
		Participants: models.DirectParticipants(a, b),
		Messages:     []models.ChatMessage{},
		LastUpdated:  s.timestamp(),
	}
	s.conversations[id] = conv
	s.saveConversation(ctx, conv)
	return conv.Clone(), true
}

// RequireGroup fails when id is unknown or not a group.
func (s *Store) RequireGroup(id string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.group(id)
	if err != nil {
		return models.Conversation{}, err
	}
	return conv.Clone(), nil
}

// EnsureGroup creates a placeholder group that only knows one participant.
// Existing records are returned untouched.
func (s *Store) EnsureGroup(ctx context.Context, id, knownParticipant string) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[id]; ok {
		return conv.Clone(), false
	}
	conv := &models.Conversation{
		ID:           id,
		Participants: []string{knownParticipant},
		Messages:     []models.ChatMessage{},
		LastUpdated:  s.timestamp(),
		IsGroup:      true,
	}
	s.conversations[id] = conv
	s.saveConversation(ctx, conv)
	return conv.Clone(), true
}

// UpsertGroup replaces the group's participants and metadata wholesale with
// conv. Message history is kept and an established creator never changes.
func (s *Store) UpsertGroup(ctx context.Context, conv models.Conversation) models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := conv.Clone()
	next.IsGroup = true
	next.LastUpdated = s.timestamp()
	next.Messages = []models.ChatMessage{}
	if existing, ok := s.conversations[conv.ID]; ok {
		next.Messages = existing.Messages
		if existing.CreatedBy != "" {
			next.CreatedBy = existing.CreatedBy
		}
	}
	s.conversations[next.ID] = &next
	s.saveConversation(ctx, &next)
	return next.Clone()
}

// AddParticipant appends member to a group.
func (s *Store) AddParticipant(ctx context.Context, groupID, member string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.group(groupID)
	if err != nil {
		return models.Conversation{}, err
	}
	if conv.HasParticipant(member) {
		return models.Conversation{}, apperrors.ErrAlreadyMember
	}
	conv.Participants = append(conv.Participants, member)
	conv.LastUpdated = s.timestamp()
	s.saveConversation(ctx, conv)
	return conv.Clone(), nil
}

// RemoveParticipant drops member from a group when present.
func (s *Store) RemoveParticipant(ctx context.Context, groupID, member string) (models.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.group(groupID)
	if err != nil {
		return models.Conversation{}, false, err
	}
	kept := conv.Participants[:0]
	removed := false
	for _, p := range conv.Participants {
		if p == member {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	conv.Participants = kept
	if removed {
		conv.LastUpdated = s.timestamp()
		s.saveConversation(ctx, conv)
	}
	return conv.Clone(), removed, nil
}

// InsertMessageDedup appends msg to its conversation unless a message with the
// same id is already stored. Messages are re-sorted by timestamp on insert.
func (s *Store) InsertMessageDedup(ctx context.Context, msg models.ChatMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[msg.ConversationID]
	if !ok {
		return false, apperrors.ErrConversationNotFound
	}
	if conv.HasMessage(msg.ID) {
		return false, nil
	}
	conv.Messages = append(conv.Messages, msg.Clone())
	sortMessages(conv.Messages)
	conv.LastUpdated = s.timestamp()

	s.saveConversation(ctx, conv)
	if s.persister != nil {
		if err := s.persister.SaveMessage(ctx, msg); err != nil {
			s.persistFailed("save_message", msg.ConversationID, err)
		}
	}
	return true, nil
}

// Summaries projects every conversation.
func (s *Store) Summaries() []models.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv.Summary())
	}
	return out
}

// Messages returns the ordered history of one conversation.
func (s *Store) Messages(id string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	return conv.Clone().Messages, nil
}

func (s *Store) group(id string) (*models.Conversation, error) {
	conv, ok := s.conversations[id]
	if !ok {
		return nil, apperrors.ErrGroupNotFound
	}
	if !conv.IsGroup {
		return nil, apperrors.ErrNotAGroup
	}
	return conv, nil
}

func (s *Store) timestamp() string {
	return models.FormatTimestamp(s.now())
}

func (s *Store) saveConversation(ctx context.Context, conv *models.Conversation) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveConversation(ctx, conv.Clone()); err != nil {
		s.persistFailed("save_conversation", conv.ID, err)
	}
}

func (s *Store) persistFailed(op, conversationID string, err error) {
	observability.IncPersistenceError(op)
	s.logger.Error("conversation store write-through failed",
		zap.String("op", op),
		zap.String("conversation_id", conversationID),
		zap.Error(err),
	)
}

func sortMessages(msgs []models.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}

func dedupeMessages(msgs []models.ChatMessage) []models.ChatMessage {
	seen := make(map[string]struct{}, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
