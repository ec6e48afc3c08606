package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"chat-node/internal/apperrors"
	"chat-node/internal/directory"
	"chat-node/internal/files"
	"chat-node/internal/models"
	"chat-node/internal/services"
	"chat-node/internal/store"
)

type node struct {
	store    *store.Store
	messages *services.MessageService
	groups   *services.GroupService
	files    *services.FileService
}

func newNode(id string, transport services.Transport) *node {
	settings := services.Settings{NodeID: id, CallTimeout: 2 * time.Second, Parallelism: 1, FilesRoot: "/data"}
	st := store.New(nil, zap.NewNop())
	return &node{
		store:    st,
		messages: services.NewMessageService(st, transport, settings, zap.NewNop()),
		groups:   services.NewGroupService(st, transport, settings, zap.NewNop()),
		files:    services.NewFileService(files.NewFSStore(afero.NewMemMapFs()), transport, settings, zap.NewNop()),
	}
}

// startPeer serves bob.os over an in-memory listener and returns a client
// that reaches it.
func startPeer(t *testing.T) (*node, *PeerClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	bob := newNode("bob.os", nil)

	srv := NewServer(NewPeerServer(bob.messages, bob.groups, bob.files, zap.NewNop()), zap.NewNop())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	resolver := directory.NewStaticResolver(map[string]string{"bob.os": "passthrough:///bufnet"}, "")
	client := NewPeerClient(resolver, 200*time.Millisecond, zap.NewNop(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	t.Cleanup(func() { _ = client.Close() })
	return bob, client
}

func TestSendReachesPeer(t *testing.T) {
	bob, client := startPeer(t)
	alice := newNode("alice.os", client)
	ctx := context.Background()

	receipt, err := alice.messages.Send(ctx, "bob.os", "hello bob")
	require.NoError(t, err)
	assert.Equal(t, models.ReplicationSynced, receipt.Replication.Status())

	msgs, err := bob.store.Messages("alice.os|bob.os")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, receipt.Message.ID, msgs[0].ID)
	assert.Equal(t, "hello bob", msgs[0].Content)
}

func TestGroupJoinReachesPeer(t *testing.T) {
	bob, client := startPeer(t)
	alice := newNode("alice.os", client)

	receipt, err := alice.groups.CreateGroup(context.Background(), "Team", []string{"bob.os"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob.os"}, receipt.Replication.Delivered)

	conv, err := bob.store.RequireGroup(receipt.GroupID)
	require.NoError(t, err)
	assert.Equal(t, "Team", conv.GroupName)
	assert.Equal(t, "alice.os", conv.CreatedBy)
	assert.ElementsMatch(t, []string{"alice.os", "bob.os"}, conv.Participants)
}

func TestRemoteFileFetch(t *testing.T) {
	bob, client := startPeer(t)
	alice := newNode("alice.os", client)
	ctx := context.Background()

	info, err := bob.files.Upload(ctx, "notes.txt", "text/plain", []byte("shared notes"))
	require.NoError(t, err)

	data, err := alice.files.Resolve(ctx, info.FileID, "bob.os")
	require.NoError(t, err)
	assert.Equal(t, []byte("shared notes"), data)

	_, err = alice.files.Resolve(ctx, files.NewFileID(), "bob.os")
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
}

func TestRemoteRejectionIsTransportError(t *testing.T) {
	_, client := startPeer(t)

	var ack models.Ack
	err := client.Call(context.Background(), "bob.os", models.OpHandleGroupJoin,
		models.GroupJoinNotification{GroupID: "not-a-group"}, &ack)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
	assert.False(t, ack.OK)

	err = client.Call(context.Background(), "bob.os", "DropTables", struct{}{}, &ack)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}

func TestUnreachablePeerFailsWithinTimeout(t *testing.T) {
	resolver := directory.NewStaticResolver(map[string]string{"ghost.os": "127.0.0.1:1"}, "")
	client := NewPeerClient(resolver, 100*time.Millisecond, zap.NewNop())
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var ack models.Ack
	err := client.Call(ctx, "ghost.os", models.OpReceiveMessage, models.ChatMessage{ID: "m1"}, &ack)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
}
