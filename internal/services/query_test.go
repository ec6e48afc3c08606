package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/models"
	"chat-node/internal/store"
)

func TestListConversationsMostRecentFirst(t *testing.T) {
	st := store.New(nil, zap.NewNop())
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	st.SetClock(func() time.Time { return base })
	st.GetOrCreateDirect(ctx, self, "bob.os")
	st.SetClock(func() time.Time { return base.Add(2 * time.Minute) })
	st.UpsertGroup(ctx, models.Conversation{ID: "group_g", Participants: []string{self, "bob.os"}, GroupName: "G"})
	st.SetClock(func() time.Time { return base.Add(time.Minute) })
	st.GetOrCreateDirect(ctx, self, "carol.os")

	got := NewQueryService(st, self).ListConversations(ctx)
	require.Len(t, got, 3)
	assert.Equal(t, "group_g", got[0].ID)
	assert.True(t, got[0].IsGroup)
	assert.Equal(t, "G", got[0].GroupName)
	assert.Equal(t, "alice.os|carol.os", got[1].ID)
	assert.Equal(t, "alice.os|bob.os", got[2].ID)
}

func TestListMessagesUnknownConversation(t *testing.T) {
	st := store.New(nil, zap.NewNop())
	query := NewQueryService(st, self)

	_, err := query.ListMessages(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Empty(t, query.ListConversations(context.Background()))
}

type memoryNodes struct {
	id      string
	saved   int
	loadErr error
}

func (m *memoryNodes) LoadNodeID(context.Context) (string, error) { return m.id, m.loadErr }

func (m *memoryNodes) SaveNodeID(_ context.Context, id string) error {
	m.id = id
	m.saved++
	return nil
}

func TestResolveNodeID(t *testing.T) {
	ctx := context.Background()

	nodes := &memoryNodes{}
	id, err := ResolveNodeID(ctx, "alice.os", nodes, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "alice.os", id)
	assert.Equal(t, 1, nodes.saved)

	id, err = ResolveNodeID(ctx, "", nodes, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "alice.os", id)
	assert.Equal(t, 1, nodes.saved)

	_, err = ResolveNodeID(ctx, "", &memoryNodes{}, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrNodeIdentity)

	_, err = ResolveNodeID(ctx, "alice", nil, zap.NewNop())
	assert.ErrorIs(t, err, apperrors.ErrNodeIdentity)

	_, err = ResolveNodeID(ctx, "alice.os", &memoryNodes{loadErr: errors.New("db down")}, zap.NewNop())
	assert.Error(t, err)
}
