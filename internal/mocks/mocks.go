package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-node/internal/models"
)

type TransportMock struct {
	mock.Mock
}

// Call records the request; a *models.RemoteFileResponse reply is filled from
// the optional third return value.
func (m *TransportMock) Call(ctx context.Context, peer, op string, payload, reply any) error {
	args := m.Called(ctx, peer, op, payload, reply)
	if len(args) > 1 {
		if data, ok := args.Get(1).([]byte); ok {
			if out, ok := reply.(*models.RemoteFileResponse); ok {
				out.Data = data
			}
		}
	}
	if out, ok := reply.(*models.Ack); ok && args.Error(0) == nil {
		out.OK = true
	}
	return args.Error(0)
}

type PersisterMock struct {
	mock.Mock
}

func (m *PersisterMock) SaveConversation(ctx context.Context, conv models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *PersisterMock) SaveMessage(ctx context.Context, msg models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *PersisterMock) LoadConversations(ctx context.Context) ([]models.Conversation, error) {
	args := m.Called(ctx)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) MessageStored(msg models.ChatMessage) {
	m.Called(msg)
}

func (m *NotifierMock) ConversationUpdated(summary models.ConversationSummary) {
	m.Called(summary)
}

type MessageServiceMock struct {
	mock.Mock
}

func (m *MessageServiceMock) Send(ctx context.Context, target, content string) (models.SendReceipt, error) {
	args := m.Called(ctx, target, content)
	var receipt models.SendReceipt
	if val := args.Get(0); val != nil {
		receipt = val.(models.SendReceipt)
	}
	return receipt, args.Error(1)
}

func (m *MessageServiceMock) SendFile(ctx context.Context, target, content string, info models.FileInfo) (models.SendReceipt, error) {
	args := m.Called(ctx, target, content, info)
	var receipt models.SendReceipt
	if val := args.Get(0); val != nil {
		receipt = val.(models.SendReceipt)
	}
	return receipt, args.Error(1)
}

func (m *MessageServiceMock) Receive(ctx context.Context, msg models.ChatMessage) bool {
	args := m.Called(ctx, msg)
	return args.Bool(0)
}

type GroupServiceMock struct {
	mock.Mock
}

func (m *GroupServiceMock) CreateGroup(ctx context.Context, name string, members []string) (models.GroupReceipt, error) {
	args := m.Called(ctx, name, members)
	var receipt models.GroupReceipt
	if val := args.Get(0); val != nil {
		receipt = val.(models.GroupReceipt)
	}
	return receipt, args.Error(1)
}

func (m *GroupServiceMock) AddMember(ctx context.Context, groupID, member string) (models.GroupReceipt, error) {
	args := m.Called(ctx, groupID, member)
	var receipt models.GroupReceipt
	if val := args.Get(0); val != nil {
		receipt = val.(models.GroupReceipt)
	}
	return receipt, args.Error(1)
}

func (m *GroupServiceMock) LeaveGroup(ctx context.Context, groupID string) (models.GroupReceipt, error) {
	args := m.Called(ctx, groupID)
	var receipt models.GroupReceipt
	if val := args.Get(0); val != nil {
		receipt = val.(models.GroupReceipt)
	}
	return receipt, args.Error(1)
}

func (m *GroupServiceMock) HandleGroupJoin(ctx context.Context, n models.GroupJoinNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *GroupServiceMock) HandleGroupLeave(ctx context.Context, n models.GroupLeaveNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type FileServiceMock struct {
	mock.Mock
}

func (m *FileServiceMock) Upload(ctx context.Context, name, mimeType string, data []byte) (models.FileInfo, error) {
	args := m.Called(ctx, name, mimeType, data)
	var info models.FileInfo
	if val := args.Get(0); val != nil {
		info = val.(models.FileInfo)
	}
	return info, args.Error(1)
}

func (m *FileServiceMock) Resolve(ctx context.Context, fileID, senderNode string) ([]byte, error) {
	args := m.Called(ctx, fileID, senderNode)
	var data []byte
	if val := args.Get(0); val != nil {
		data = val.([]byte)
	}
	return data, args.Error(1)
}

func (m *FileServiceMock) ServeRemote(ctx context.Context, fileID string) ([]byte, error) {
	args := m.Called(ctx, fileID)
	var data []byte
	if val := args.Get(0); val != nil {
		data = val.([]byte)
	}
	return data, args.Error(1)
}

type QueryServiceMock struct {
	mock.Mock
}

func (m *QueryServiceMock) ListConversations(ctx context.Context) []models.ConversationSummary {
	args := m.Called(ctx)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list
}

func (m *QueryServiceMock) ListMessages(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, conversationID)
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs, args.Error(1)
}

func (m *QueryServiceMock) NodeID() string {
	args := m.Called()
	return args.String(0)
}
