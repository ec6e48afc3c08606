package grpc

import (
	"context"

	"google.golang.org/grpc"

	"chat-node/internal/models"
)

const ServiceName = "chatnode.Peer"

// PeerServiceServer is the surface a node exposes to other nodes.
type PeerServiceServer interface {
	ReceiveMessage(ctx context.Context, in *models.ChatMessage) (*models.Ack, error)
	HandleGroupJoin(ctx context.Context, in *models.GroupJoinNotification) (*models.Ack, error)
	HandleGroupLeave(ctx context.Context, in *models.GroupLeaveNotification) (*models.Ack, error)
	GetRemoteFile(ctx context.Context, in *models.RemoteFileRequest) (*models.RemoteFileResponse, error)
}

func RegisterPeerServiceServer(s grpc.ServiceRegistrar, srv PeerServiceServer) {
	s.RegisterService(&peerServiceDesc, srv)
}

func fullMethod(op string) string {
	return "/" + ServiceName + "/" + op
}

// methodHandler matches grpc.MethodDesc.Handler.
type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func unaryHandler[Req, Resp any](op string, call func(PeerServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PeerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(op),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(PeerServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var peerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PeerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: models.OpReceiveMessage,
			Handler: unaryHandler(models.OpReceiveMessage, func(s PeerServiceServer, ctx context.Context, in *models.ChatMessage) (*models.Ack, error) {
				return s.ReceiveMessage(ctx, in)
			}),
		},
		{
			MethodName: models.OpHandleGroupJoin,
			Handler: unaryHandler(models.OpHandleGroupJoin, func(s PeerServiceServer, ctx context.Context, in *models.GroupJoinNotification) (*models.Ack, error) {
				return s.HandleGroupJoin(ctx, in)
			}),
		},
		{
			MethodName: models.OpHandleGroupLeave,
			Handler: unaryHandler(models.OpHandleGroupLeave, func(s PeerServiceServer, ctx context.Context, in *models.GroupLeaveNotification) (*models.Ack, error) {
				return s.HandleGroupLeave(ctx, in)
			}),
		},
		{
			MethodName: models.OpGetRemoteFile,
			Handler: unaryHandler(models.OpGetRemoteFile, func(s PeerServiceServer, ctx context.Context, in *models.RemoteFileRequest) (*models.RemoteFileResponse, error) {
				return s.GetRemoteFile(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chatnode/peer",
}
