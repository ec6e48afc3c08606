package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/models"
	"chat-node/internal/store"
)

// GroupService owns group lifecycle and membership notifications.
type GroupService struct {
	replicator
}

func NewGroupService(st *store.Store, transport Transport, settings Settings, logger *zap.Logger) *GroupService {
	return &GroupService{replicator: newReplicator(st, transport, settings, logger)}
}

func (s *GroupService) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateGroup stores a new group created by this node and sends a join
// notification to every other member.
func (s *GroupService) CreateGroup(ctx context.Context, name string, members []string) (models.GroupReceipt, error) {
	ctx, span := tracer.Start(ctx, "group.create")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return models.GroupReceipt{}, apperrors.ErrEmptyGroupName
	}

	self := s.settings.NodeID
	participants := make([]string, 0, len(members)+1)
	seen := make(map[string]struct{}, len(members)+1)
	for _, m := range members {
		m = strings.TrimSpace(m)
		if !models.ValidAddress(m) {
			return models.GroupReceipt{}, apperrors.ErrInvalidMember
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		participants = append(participants, m)
	}
	if _, ok := seen[self]; !ok {
		participants = append(participants, self)
	}
	if len(participants) < 2 {
		return models.GroupReceipt{}, apperrors.ErrTooFewParticipants
	}

	conv := s.store.UpsertGroup(ctx, models.Conversation{
		ID:           models.NewGroupID(),
		Participants: participants,
		GroupName:    name,
		CreatedBy:    self,
	})
	span.SetAttributes(attribute.String("group_id", conv.ID))
	s.logger.Info("group created",
		zap.String("group_id", conv.ID),
		zap.String("group_name", name),
		zap.Strings("participants", conv.Participants),
	)
	s.conversationUpdated(ctx, conv)

	report := s.fanout(ctx, models.OpHandleGroupJoin, without(conv.Participants, self), joinNotification(conv),
		zap.String("group_id", conv.ID),
	)
	return models.GroupReceipt{GroupID: conv.ID, Replication: report}, nil
}

// AddMember appends member locally and sends the full snapshot to the new
// member only. Existing members are not told.
func (s *GroupService) AddMember(ctx context.Context, groupID, member string) (models.GroupReceipt, error) {
	ctx, span := tracer.Start(ctx, "group.add_member")
	defer span.End()
	span.SetAttributes(attribute.String("group_id", groupID))

	member = strings.TrimSpace(member)
	if !models.ValidAddress(member) {
		return models.GroupReceipt{}, apperrors.ErrInvalidMember
	}
	conv, err := s.store.AddParticipant(ctx, groupID, member)
	if err != nil {
		return models.GroupReceipt{}, err
	}
	s.conversationUpdated(ctx, conv)

	var peers []string
	if member != s.settings.NodeID {
		peers = []string{member}
	}
	report := s.fanout(ctx, models.OpHandleGroupJoin, peers, joinNotification(conv),
		zap.String("group_id", conv.ID),
	)
	return models.GroupReceipt{GroupID: conv.ID, Replication: report}, nil
}

// LeaveGroup removes this node from the group and tells the remaining
// members. The local record is kept.
func (s *GroupService) LeaveGroup(ctx context.Context, groupID string) (models.GroupReceipt, error) {
	ctx, span := tracer.Start(ctx, "group.leave")
	defer span.End()
	span.SetAttributes(attribute.String("group_id", groupID))

	self := s.settings.NodeID
	conv, removed, err := s.store.RemoveParticipant(ctx, groupID, self)
	if err != nil {
		return models.GroupReceipt{}, err
	}
	if !removed {
		return models.GroupReceipt{}, apperrors.ErrNotMember
	}
	s.conversationUpdated(ctx, conv)

	notification := models.GroupLeaveNotification{GroupID: conv.ID, Member: self}
	report := s.fanout(ctx, models.OpHandleGroupLeave, conv.Participants, notification,
		zap.String("group_id", conv.ID),
	)
	return models.GroupReceipt{GroupID: conv.ID, Replication: report}, nil
}

// HandleGroupJoin replaces the local group record with the notification's
// snapshot. The last notification applied wins.
func (s *GroupService) HandleGroupJoin(ctx context.Context, n models.GroupJoinNotification) error {
	ctx, span := tracer.Start(ctx, "group.handle_join")
	defer span.End()
	span.SetAttributes(attribute.String("group_id", n.GroupID))

	if !models.IsGroupID(n.GroupID) {
		return apperrors.ErrInvalidGroupID
	}
	if existing, ok := s.store.Get(n.GroupID); ok && !existing.IsGroup {
		return apperrors.ErrNotAGroup
	}
	conv := s.store.UpsertGroup(ctx, models.Conversation{
		ID:           n.GroupID,
		Participants: n.Participants,
		GroupName:    n.GroupName,
		CreatedBy:    n.CreatedBy,
	})
	s.logger.Info("group membership applied",
		zap.String("group_id", conv.ID),
		zap.Strings("participants", conv.Participants),
	)
	s.conversationUpdated(ctx, conv)
	return nil
}

// HandleGroupLeave drops the departing member. Unknown groups are ignored.
func (s *GroupService) HandleGroupLeave(ctx context.Context, n models.GroupLeaveNotification) error {
	ctx, span := tracer.Start(ctx, "group.handle_leave")
	defer span.End()
	span.SetAttributes(attribute.String("group_id", n.GroupID))

	conv, removed, err := s.store.RemoveParticipant(ctx, n.GroupID, n.Member)
	if err != nil {
		if errors.Is(err, apperrors.ErrGroupNotFound) || errors.Is(err, apperrors.ErrNotAGroup) {
			s.logger.Debug("leave notification for unknown group", zap.String("group_id", n.GroupID))
			return nil
		}
		return err
	}
	if removed {
		s.conversationUpdated(ctx, conv)
	}
	return nil
}

func joinNotification(conv models.Conversation) models.GroupJoinNotification {
	return models.GroupJoinNotification{
		GroupID:      conv.ID,
		GroupName:    conv.GroupName,
		Participants: append([]string{}, conv.Participants...),
		CreatedBy:    conv.CreatedBy,
	}
}
