package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"chat-node/internal/apperrors"
	"chat-node/internal/directory"
	"chat-node/internal/models"
	"chat-node/internal/observability"
)

// PeerClient calls other nodes. Connections are cached per resolved address.
type PeerClient struct {
	resolver        directory.Resolver
	retryMaxElapsed time.Duration
	dialOpts        []grpc.DialOption
	logger          *zap.Logger

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

func NewPeerClient(resolver directory.Resolver, retryMaxElapsed time.Duration, logger *zap.Logger, opts ...grpc.DialOption) *PeerClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(codecName),
			grpc.MaxCallRecvMsgSize(MaxMessageSize),
			grpc.MaxCallSendMsgSize(MaxMessageSize),
		),
	}
	return &PeerClient{
		resolver:        resolver,
		retryMaxElapsed: retryMaxElapsed,
		dialOpts:        append(dialOpts, opts...),
		logger:          logger,
		conns:           make(map[string]*grpc.ClientConn),
	}
}

// Call invokes op on peer. Unavailable peers are retried with exponential
// backoff until ctx expires or the retry budget runs out. Every failure is
// returned as a TRANSPORT error.
func (c *PeerClient) Call(ctx context.Context, peer, op string, payload, reply any) error {
	start := time.Now()
	err := c.call(ctx, peer, op, payload, reply)
	observability.ObservePeerCall(op, err, time.Since(start))
	if err != nil {
		return apperrors.Transport(peer, op, err)
	}
	return nil
}

func (c *PeerClient) call(ctx context.Context, peer, op string, payload, reply any) error {
	if !knownOp(op) {
		return status.Errorf(codes.Unimplemented, "unknown peer operation %q", op)
	}
	addr, err := c.resolver.Resolve(ctx, peer)
	if err != nil {
		return err
	}
	conn, err := c.conn(addr)
	if err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = c.retryMaxElapsed

	return backoff.Retry(func() error {
		err := conn.Invoke(ctx, fullMethod(op), payload, reply)
		if err == nil {
			return nil
		}
		if status.Code(err) == codes.Unavailable && ctx.Err() == nil {
			c.logger.Debug("peer unavailable, retrying", zap.String("peer", peer), zap.String("op", op))
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(policy, ctx))
}

func (c *PeerClient) conn(addr string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(addr, c.dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conns[addr] = conn
	return conn, nil
}

// Close releases every cached connection.
func (c *PeerClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for addr, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.conns, addr)
	}
	return firstErr
}

func knownOp(op string) bool {
	switch op {
	case models.OpReceiveMessage, models.OpHandleGroupJoin, models.OpHandleGroupLeave, models.OpGetRemoteFile:
		return true
	}
	return false
}
