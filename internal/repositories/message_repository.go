package repositories

import (
	"context"
	"database/sql/driver"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"chat-node/internal/models"
)

// MessageRepository stores messages append-only.
type MessageRepository interface {
	SaveMessage(ctx context.Context, msg models.ChatMessage) error
	ListMessages(ctx context.Context) ([]models.ChatMessage, error)
}

// fileInfoColumn maps an optional attachment onto a JSONB column.
type fileInfoColumn struct {
	info *models.FileInfo
}

func (c fileInfoColumn) Value() (driver.Value, error) {
	if c.info == nil {
		return nil, nil
	}
	return json.Marshal(c.info)
}

func (c *fileInfoColumn) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		c.info = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.Errorf("unsupported file_info type %T", src)
	}
	var info models.FileInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return errors.Wrap(err, "decode file_info")
	}
	c.info = &info
	return nil
}

type messageRow struct {
	ID             string         `db:"id"`
	ConversationID string         `db:"conversation_id"`
	Sender         string         `db:"sender"`
	Recipient      string         `db:"recipient"`
	Recipients     pq.StringArray `db:"recipients"`
	Content        string         `db:"content"`
	Timestamp      string         `db:"sent_at"`
	Delivered      bool           `db:"delivered"`
	FileInfo       fileInfoColumn `db:"file_info"`
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// SaveMessage inserts msg; a message id already stored is left untouched.
func (r *MessageRepo) SaveMessage(ctx context.Context, msg models.ChatMessage) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO messages (id, conversation_id, sender, recipient, recipients, content, sent_at, delivered, file_info)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.ConversationID, msg.Sender, msg.Recipient, pq.StringArray(msg.Recipients),
		msg.Content, msg.Timestamp, msg.Delivered, fileInfoColumn{info: msg.FileInfo})
	return errors.Wrapf(err, "save message %s", msg.ID)
}

// ListMessages returns every stored message ordered by timestamp.
func (r *MessageRepo) ListMessages(ctx context.Context) ([]models.ChatMessage, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, conversation_id, sender, recipient, recipients, content, sent_at, delivered, file_info
        FROM messages
        ORDER BY sent_at ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	msgs := make([]models.ChatMessage, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, models.ChatMessage{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			Sender:         row.Sender,
			Recipient:      row.Recipient,
			Recipients:     []string(row.Recipients),
			Content:        row.Content,
			Timestamp:      row.Timestamp,
			Delivered:      row.Delivered,
			FileInfo:       row.FileInfo.info,
		})
	}
	return msgs, nil
}
