package logger

import (
	"go.uber.org/zap"
)

type Config struct {
	Development bool
	NodeID      string
}

// New builds the process logger. Every entry carries the node identity.
func New(cfg Config) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if cfg.Development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	if cfg.NodeID != "" {
		l = l.With(zap.String("node_id", cfg.NodeID))
	}
	return l, nil
}
