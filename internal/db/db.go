package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Connect opens the node database and applies migrations.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	return db, nil
}

func runMigrations(ctx context.Context, db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
            id TEXT PRIMARY KEY,
            participants TEXT[] NOT NULL DEFAULT '{}',
            last_updated TEXT NOT NULL,
            is_group BOOLEAN NOT NULL DEFAULT FALSE,
            group_name TEXT NOT NULL DEFAULT '',
            created_by TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender TEXT NOT NULL,
            recipient TEXT NOT NULL DEFAULT '',
            recipients TEXT[],
            content TEXT NOT NULL,
            sent_at TEXT NOT NULL,
            delivered BOOLEAN NOT NULL DEFAULT FALSE,
            file_info JSONB
        );`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_sent_at_idx ON messages (conversation_id, sent_at);`,
		`CREATE TABLE IF NOT EXISTS node_state (
            id INT PRIMARY KEY,
            node_id TEXT NOT NULL,
            updated_at TIMESTAMPTZ DEFAULT NOW()
        );`,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
