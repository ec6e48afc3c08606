package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// NodeRepo keeps the single-row local node identity.
type NodeRepo struct {
	db *sqlx.DB
}

func NewNodeRepo(db *sqlx.DB) *NodeRepo {
	return &NodeRepo{db: db}
}

// LoadNodeID returns an empty id when none was saved yet.
func (r *NodeRepo) LoadNodeID(ctx context.Context) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT node_id FROM node_state WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "load node id")
	}
	return id, nil
}

func (r *NodeRepo) SaveNodeID(ctx context.Context, nodeID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO node_state (id, node_id) VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET node_id = EXCLUDED.node_id, updated_at = NOW()`, nodeID)
	return errors.Wrap(err, "save node id")
}
