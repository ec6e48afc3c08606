package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/models"
)

// NodeStore persists the local node identity.
type NodeStore interface {
	LoadNodeID(ctx context.Context) (string, error)
	SaveNodeID(ctx context.Context, nodeID string) error
}

// ResolveNodeID picks the configured identity and persists it, or falls back
// to the identity saved by a previous run.
func ResolveNodeID(ctx context.Context, configured string, nodes NodeStore, logger *zap.Logger) (string, error) {
	configured = strings.TrimSpace(configured)

	var persisted string
	if nodes != nil {
		id, err := nodes.LoadNodeID(ctx)
		if err != nil {
			return "", err
		}
		persisted = id
	}

	if configured == "" {
		if persisted == "" {
			return "", apperrors.ErrNodeIdentity
		}
		return persisted, nil
	}
	if !models.ValidAddress(configured) {
		return "", apperrors.WithCause(apperrors.ErrNodeIdentity, apperrors.ErrInvalidMember)
	}
	if persisted != "" && persisted != configured && logger != nil {
		logger.Warn("node identity changed", zap.String("previous", persisted), zap.String("current", configured))
	}
	if nodes != nil && persisted != configured {
		if err := nodes.SaveNodeID(ctx, configured); err != nil {
			return "", err
		}
	}
	return configured, nil
}
