package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// GroupPrefix marks conversation ids that belong to groups.
	GroupPrefix = "group_"
	// DirectSeparator joins the two sorted endpoints of a direct conversation id.
	DirectSeparator = "|"
	// TimestampLayout is the canonical, fixed-width UTC encoding. Lexical order
	// of values in this layout equals chronological order.
	TimestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// DirectConversationID derives the id shared by both endpoints.
func DirectConversationID(a, b string) string {
	return strings.Join(DirectParticipants(a, b), DirectSeparator)
}

// DirectParticipants returns the two endpoints in sorted order.
func DirectParticipants(a, b string) []string {
	participants := []string{a, b}
	sort.Strings(participants)
	return participants
}

// NewGroupID generates a fresh group conversation id.
func NewGroupID() string {
	return GroupPrefix + uuid.NewString()
}

// IsGroupID reports whether id names a group conversation.
func IsGroupID(id string) bool {
	return strings.HasPrefix(id, GroupPrefix)
}

// ValidAddress is a minimal shape check for node identities ("name.os").
func ValidAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	return addr != "" && strings.Contains(addr, ".")
}

// FormatTimestamp encodes t in the canonical layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp decodes a canonical timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}
