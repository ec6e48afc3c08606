package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"chat-node/internal/models"
)

// ConversationRepository persists conversation headers. Messages live in
// their own table.
type ConversationRepository interface {
	SaveConversation(ctx context.Context, conv models.Conversation) error
	ListConversations(ctx context.Context) ([]models.Conversation, error)
}

type conversationRow struct {
	ID           string         `db:"id"`
	Participants pq.StringArray `db:"participants"`
	LastUpdated  string         `db:"last_updated"`
	IsGroup      bool           `db:"is_group"`
	GroupName    string         `db:"group_name"`
	CreatedBy    string         `db:"created_by"`
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// SaveConversation upserts the header; participant lists are replaced.
func (r *ConversationRepo) SaveConversation(ctx context.Context, conv models.Conversation) error {
	row := conversationRow{
		ID:           conv.ID,
		Participants: pq.StringArray(conv.Participants),
		LastUpdated:  conv.LastUpdated,
		IsGroup:      conv.IsGroup,
		GroupName:    conv.GroupName,
		CreatedBy:    conv.CreatedBy,
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO conversations (id, participants, last_updated, is_group, group_name, created_by)
        VALUES (:id, :participants, :last_updated, :is_group, :group_name, :created_by)
        ON CONFLICT (id) DO UPDATE SET
            participants = EXCLUDED.participants,
            last_updated = EXCLUDED.last_updated,
            is_group = EXCLUDED.is_group,
            group_name = EXCLUDED.group_name,
            created_by = EXCLUDED.created_by`, row)
	return errors.Wrapf(err, "save conversation %s", conv.ID)
}

// ListConversations returns every header with an empty message list.
func (r *ConversationRepo) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var rows []conversationRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, participants, last_updated, is_group, group_name, created_by FROM conversations`)
	if err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}
	convs := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		convs = append(convs, models.Conversation{
			ID:           row.ID,
			Participants: []string(row.Participants),
			Messages:     []models.ChatMessage{},
			LastUpdated:  row.LastUpdated,
			IsGroup:      row.IsGroup,
			GroupName:    row.GroupName,
			CreatedBy:    row.CreatedBy,
		})
	}
	return convs, nil
}
