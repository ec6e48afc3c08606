package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/mocks"
	"chat-node/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func msgAt(id, conversationID, ts string) models.ChatMessage {
	return models.ChatMessage{
		ID:             id,
		ConversationID: conversationID,
		Sender:         "alice.os",
		Content:        "hi " + id,
		Timestamp:      ts,
	}
}

func TestGetOrCreateDirectIsCommutative(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()

	first, created := s.GetOrCreateDirect(ctx, "bob.os", "alice.os")
	require.True(t, created)
	second, created := s.GetOrCreateDirect(ctx, "alice.os", "bob.os")
	require.False(t, created)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice.os|bob.os", first.ID)
	assert.Equal(t, []string{"alice.os", "bob.os"}, first.Participants)
	assert.False(t, first.IsGroup)
	assert.Empty(t, first.Messages)
}

func TestInsertMessageDedup(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()
	conv, _ := s.GetOrCreateDirect(ctx, "alice.os", "bob.os")

	msg := msgAt("m1", conv.ID, "2024-01-01T00:00:01.000000000Z")
	inserted, err := s.InsertMessageDedup(ctx, msg)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertMessageDedup(ctx, msg)
	require.NoError(t, err)
	assert.False(t, inserted)

	msgs, err := s.Messages(conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestInsertMessageKeepsTimestampOrder(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()
	conv, _ := s.GetOrCreateDirect(ctx, "alice.os", "bob.os")

	for _, m := range []models.ChatMessage{
		msgAt("t3", conv.ID, "2024-01-01T00:00:03.000000000Z"),
		msgAt("t1", conv.ID, "2024-01-01T00:00:01.000000000Z"),
		msgAt("t2", conv.ID, "2024-01-01T00:00:02.000000000Z"),
	} {
		_, err := s.InsertMessageDedup(ctx, m)
		require.NoError(t, err)
	}

	msgs, err := s.Messages(conv.ID)
	require.NoError(t, err)
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids)
}

func TestInsertMessageUpdatesLastUpdated(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()
	s.SetClock(fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	conv, _ := s.GetOrCreateDirect(ctx, "alice.os", "bob.os")

	later := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s.SetClock(fixedClock(later))
	_, err := s.InsertMessageDedup(ctx, msgAt("m1", conv.ID, "2020-01-01T00:00:00.000000000Z"))
	require.NoError(t, err)

	got, ok := s.Get(conv.ID)
	require.True(t, ok)
	assert.Equal(t, models.FormatTimestamp(later), got.LastUpdated)
}

func TestInsertMessageUnknownConversation(t *testing.T) {
	s := New(nil, zap.NewNop())

	_, err := s.InsertMessageDedup(context.Background(), msgAt("m1", "nope", "x"))
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestRequireGroup(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()
	direct, _ := s.GetOrCreateDirect(ctx, "alice.os", "bob.os")

	_, err := s.RequireGroup("group_missing")
	assert.ErrorIs(t, err, apperrors.ErrGroupNotFound)

	_, err = s.RequireGroup(direct.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotAGroup)
}

func TestUpsertGroupOverwritesMembershipAndKeepsHistory(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()

	s.UpsertGroup(ctx, models.Conversation{
		ID:           "group_1",
		Participants: []string{"alice.os", "bob.os", "carol.os"},
		GroupName:    "Team",
		CreatedBy:    "alice.os",
	})
	_, err := s.InsertMessageDedup(ctx, msgAt("m1", "group_1", "2024-01-01T00:00:01.000000000Z"))
	require.NoError(t, err)

	got := s.UpsertGroup(ctx, models.Conversation{
		ID:           "group_1",
		Participants: []string{"alice.os", "bob.os"},
		GroupName:    "Renamed",
		CreatedBy:    "mallory.os",
	})

	assert.Equal(t, []string{"alice.os", "bob.os"}, got.Participants)
	assert.Equal(t, "Renamed", got.GroupName)
	assert.Equal(t, "alice.os", got.CreatedBy)
	assert.True(t, got.IsGroup)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "m1", got.Messages[0].ID)
}

func TestEnsureGroupPlaceholder(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()

	conv, created := s.EnsureGroup(ctx, "group_x", "bob.os")
	require.True(t, created)
	assert.True(t, conv.IsGroup)
	assert.Equal(t, []string{"bob.os"}, conv.Participants)

	_, created = s.EnsureGroup(ctx, "group_x", "carol.os")
	assert.False(t, created)
}

func TestAddAndRemoveParticipant(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()
	s.UpsertGroup(ctx, models.Conversation{ID: "group_1", Participants: []string{"alice.os", "bob.os"}})

	conv, err := s.AddParticipant(ctx, "group_1", "carol.os")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice.os", "bob.os", "carol.os"}, conv.Participants)

	_, err = s.AddParticipant(ctx, "group_1", "carol.os")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyMember)

	conv, removed, err := s.RemoveParticipant(ctx, "group_1", "bob.os")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"alice.os", "carol.os"}, conv.Participants)

	_, removed, err = s.RemoveParticipant(ctx, "group_1", "bob.os")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestReturnedConversationsAreCopies(t *testing.T) {
	s := New(nil, zap.NewNop())
	ctx := context.Background()
	conv, _ := s.GetOrCreateDirect(ctx, "alice.os", "bob.os")
	conv.Participants[0] = "mallory.os"

	got, _ := s.Get(conv.ID)
	assert.Equal(t, "alice.os", got.Participants[0])
}

func TestWriteThroughFailureDoesNotFailMutation(t *testing.T) {
	persister := new(mocks.PersisterMock)
	persister.On("SaveConversation", mock.Anything, mock.Anything).Return(errors.New("db down"))
	persister.On("SaveMessage", mock.Anything, mock.Anything).Return(errors.New("db down"))

	s := New(persister, zap.NewNop())
	ctx := context.Background()
	conv, _ := s.GetOrCreateDirect(ctx, "alice.os", "bob.os")

	inserted, err := s.InsertMessageDedup(ctx, msgAt("m1", conv.ID, "2024-01-01T00:00:01.000000000Z"))
	require.NoError(t, err)
	assert.True(t, inserted)
	persister.AssertCalled(t, "SaveMessage", mock.Anything, mock.MatchedBy(func(m models.ChatMessage) bool {
		return m.ID == "m1"
	}))
}

func TestRestore(t *testing.T) {
	persister := new(mocks.PersisterMock)
	persister.On("LoadConversations", mock.Anything).Return([]models.Conversation{{
		ID:           "alice.os|bob.os",
		Participants: []string{"alice.os", "bob.os"},
		Messages: []models.ChatMessage{
			msgAt("b", "alice.os|bob.os", "2024-01-01T00:00:02.000000000Z"),
			msgAt("a", "alice.os|bob.os", "2024-01-01T00:00:01.000000000Z"),
			msgAt("a", "alice.os|bob.os", "2024-01-01T00:00:01.000000000Z"),
		},
	}}, nil)

	s := New(persister, zap.NewNop())
	require.NoError(t, s.Restore(context.Background()))

	msgs, err := s.Messages("alice.os|bob.os")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].ID)
	assert.Len(t, s.Summaries(), 1)
}
