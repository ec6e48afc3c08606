package models

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectConversationIDIsCommutative(t *testing.T) {
	assert.Equal(t, DirectConversationID("alice.os", "bob.os"), DirectConversationID("bob.os", "alice.os"))
	assert.Equal(t, "alice.os|bob.os", DirectConversationID("bob.os", "alice.os"))
}

func TestGroupIDPrefix(t *testing.T) {
	id := NewGroupID()
	assert.True(t, IsGroupID(id))
	assert.False(t, IsGroupID("alice.os|bob.os"))
	assert.NotEqual(t, id, NewGroupID())
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("alice.os"))
	assert.False(t, ValidAddress("alice"))
	assert.False(t, ValidAddress("   "))
}

func TestTimestampLexicalOrderMatchesChronological(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 59, 59, 0, time.FixedZone("CET", 3600))
	times := []time.Time{
		base.Add(2 * time.Second),
		base,
		base.Add(500 * time.Millisecond),
		base.Add(10 * time.Nanosecond),
	}
	encoded := make([]string, 0, len(times))
	for _, ts := range times {
		encoded = append(encoded, FormatTimestamp(ts))
	}
	sort.Strings(encoded)

	for i := 1; i < len(encoded); i++ {
		prev, err := ParseTimestamp(encoded[i-1])
		require.NoError(t, err)
		next, err := ParseTimestamp(encoded[i])
		require.NoError(t, err)
		assert.True(t, prev.Before(next), "%s should sort before %s", encoded[i-1], encoded[i])
	}
	assert.Len(t, encoded[0], len(TimestampLayout))
}

func TestReplicationReportStatus(t *testing.T) {
	assert.Equal(t, ReplicationLocal, ReplicationReport{}.Status())
	assert.Equal(t, ReplicationSynced, ReplicationReport{Attempted: 1, Delivered: []string{"a.os"}}.Status())
	assert.Equal(t, ReplicationFailed, ReplicationReport{Attempted: 1, Failed: []PeerFailure{{Peer: "a.os"}}}.Status())
	assert.Equal(t, ReplicationPartial, ReplicationReport{
		Attempted: 2,
		Delivered: []string{"a.os"},
		Failed:    []PeerFailure{{Peer: "b.os"}},
	}.Status())
}

func TestMessageGroupShape(t *testing.T) {
	assert.True(t, ChatMessage{Recipients: []string{}}.IsGroupShape())
	assert.True(t, ChatMessage{ConversationID: "group_x"}.IsGroupShape())
	assert.False(t, ChatMessage{ConversationID: "a.os|b.os", Recipient: "b.os"}.IsGroupShape())
}
