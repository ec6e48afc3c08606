package grpc

import (
	"context"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chat-node/internal/apperrors"
	"chat-node/internal/models"
	"chat-node/internal/observability"
)

// MaxMessageSize bounds peer payloads, file bytes included.
const MaxMessageSize = 64 << 20

type messageReceiver interface {
	Receive(ctx context.Context, msg models.ChatMessage) bool
}

type groupNotifications interface {
	HandleGroupJoin(ctx context.Context, n models.GroupJoinNotification) error
	HandleGroupLeave(ctx context.Context, n models.GroupLeaveNotification) error
}

type remoteFiles interface {
	ServeRemote(ctx context.Context, fileID string) ([]byte, error)
}

// PeerServer dispatches inbound peer calls onto the local services.
type PeerServer struct {
	messages messageReceiver
	groups   groupNotifications
	files    remoteFiles
	logger   *zap.Logger
}

var _ PeerServiceServer = (*PeerServer)(nil)

func NewPeerServer(messages messageReceiver, groups groupNotifications, files remoteFiles, logger *zap.Logger) *PeerServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeerServer{messages: messages, groups: groups, files: files, logger: logger}
}

func (s *PeerServer) ReceiveMessage(ctx context.Context, in *models.ChatMessage) (*models.Ack, error) {
	return &models.Ack{OK: s.messages.Receive(ctx, *in)}, nil
}

func (s *PeerServer) HandleGroupJoin(ctx context.Context, in *models.GroupJoinNotification) (*models.Ack, error) {
	if err := s.groups.HandleGroupJoin(ctx, *in); err != nil {
		return nil, toStatus(err)
	}
	return &models.Ack{OK: true}, nil
}

func (s *PeerServer) HandleGroupLeave(ctx context.Context, in *models.GroupLeaveNotification) (*models.Ack, error) {
	if err := s.groups.HandleGroupLeave(ctx, *in); err != nil {
		return nil, toStatus(err)
	}
	return &models.Ack{OK: true}, nil
}

func (s *PeerServer) GetRemoteFile(ctx context.Context, in *models.RemoteFileRequest) (*models.RemoteFileResponse, error) {
	data, err := s.files.ServeRemote(ctx, in.FileID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &models.RemoteFileResponse{Data: data}, nil
}

// NewServer builds the gRPC server peers call into.
func NewServer(peer *PeerServer, logger *zap.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			observability.GRPCServerMetricsUnaryInterceptor(),
			loggingInterceptor(logger),
		),
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.MaxSendMsgSize(MaxMessageSize),
	)
	RegisterPeerServiceServer(srv, peer)
	return srv
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("peer call rejected", zap.String("method", info.FullMethod), zap.Error(err))
		} else {
			logger.Debug("peer call handled", zap.String("method", info.FullMethod))
		}
		return resp, err
	}
}

func toStatus(err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case apperrors.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case apperrors.KindAlreadyExists:
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
