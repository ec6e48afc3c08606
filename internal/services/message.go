package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"chat-node/internal/apperrors"
	"chat-node/internal/models"
	"chat-node/internal/observability"
	"chat-node/internal/store"
)

// MessageService sends local messages and applies messages received from peers.
type MessageService struct {
	replicator
}

func NewMessageService(st *store.Store, transport Transport, settings Settings, logger *zap.Logger) *MessageService {
	return &MessageService{replicator: newReplicator(st, transport, settings, logger)}
}

func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Send delivers content to a direct recipient or to a known group. The local
// copy is stored before any peer is contacted; peer failures only show up in
// the returned report.
func (s *MessageService) Send(ctx context.Context, target, content string) (models.SendReceipt, error) {
	return s.send(ctx, target, content, nil)
}

// SendFile sends a message carrying an attachment. Empty content falls back
// to the file name.
func (s *MessageService) SendFile(ctx context.Context, target, content string, info models.FileInfo) (models.SendReceipt, error) {
	if strings.TrimSpace(info.FileID) == "" {
		return models.SendReceipt{}, apperrors.ErrInvalidFileID
	}
	if strings.TrimSpace(info.FileName) == "" {
		return models.SendReceipt{}, apperrors.ErrEmptyFileName
	}
	if strings.TrimSpace(content) == "" {
		content = info.FileName
	}
	return s.send(ctx, target, content, &info)
}

func (s *MessageService) send(ctx context.Context, target, content string, info *models.FileInfo) (models.SendReceipt, error) {
	ctx, span := tracer.Start(ctx, "message.send")
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return models.SendReceipt{}, apperrors.ErrEmptyContent
	}
	target = strings.TrimSpace(target)
	self := s.settings.NodeID

	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    self,
		Content:   content,
		Timestamp: s.now(),
		FileInfo:  info,
	}

	var recipients []string
	if models.IsGroupID(target) {
		conv, err := s.store.RequireGroup(target)
		if err != nil {
			return models.SendReceipt{}, err
		}
		if !conv.HasParticipant(self) {
			return models.SendReceipt{}, apperrors.ErrNotMember
		}
		recipients = without(conv.Participants, self)
		msg.ConversationID = conv.ID
		msg.Recipients = append([]string{}, recipients...)
	} else {
		if !models.ValidAddress(target) {
			return models.SendReceipt{}, apperrors.ErrInvalidRecipient
		}
		if target == self {
			return models.SendReceipt{}, apperrors.ErrSelfRecipient
		}
		conv, created := s.store.GetOrCreateDirect(ctx, self, target)
		if created {
			s.logger.Debug("direct conversation created", zap.String("conversation_id", conv.ID))
		}
		recipients = []string{target}
		msg.ConversationID = conv.ID
		msg.Recipient = target
	}
	span.SetAttributes(
		attribute.String("conversation_id", msg.ConversationID),
		attribute.String("message_id", msg.ID),
	)

	if _, err := s.store.InsertMessageDedup(ctx, msg); err != nil {
		return models.SendReceipt{}, err
	}
	observability.IncMessageStored("local")
	s.messageStored(ctx, msg)

	report := s.fanout(ctx, models.OpReceiveMessage, recipients, msg,
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", msg.ConversationID),
	)
	return models.SendReceipt{Message: msg, Replication: report}, nil
}

// Receive applies a message pushed by a peer. It never refuses a message;
// duplicates and malformed payloads are dropped silently.
func (s *MessageService) Receive(ctx context.Context, msg models.ChatMessage) bool {
	ctx, span := tracer.Start(ctx, "message.receive")
	defer span.End()
	span.SetAttributes(
		attribute.String("message_id", msg.ID),
		attribute.String("sender", msg.Sender),
	)

	if msg.ID == "" || msg.Sender == "" {
		s.logger.Warn("dropping inbound message",
			zap.Error(apperrors.ErrInvalidMessage),
			zap.String("message_id", msg.ID),
			zap.String("sender", msg.Sender),
		)
		return true
	}

	if msg.IsGroupShape() {
		if !models.IsGroupID(msg.ConversationID) {
			s.logger.Warn("dropping group message without a group id",
				zap.Error(apperrors.ErrInvalidGroupID),
				zap.String("message_id", msg.ID),
			)
			return true
		}
		conv, created := s.store.EnsureGroup(ctx, msg.ConversationID, msg.Sender)
		if created {
			s.logger.Info("placeholder group created from inbound message",
				zap.String("conversation_id", conv.ID),
				zap.String("sender", msg.Sender),
			)
		}
		if !conv.IsGroup {
			s.logger.Warn("dropping group message addressed to a direct conversation",
				zap.String("conversation_id", conv.ID),
				zap.String("message_id", msg.ID),
			)
			return true
		}
	} else {
		recipient := msg.Recipient
		if recipient == "" {
			recipient = s.settings.NodeID
		}
		conv, _ := s.store.GetOrCreateDirect(ctx, msg.Sender, recipient)
		msg.ConversationID = conv.ID
	}

	inserted, err := s.store.InsertMessageDedup(ctx, msg)
	if err != nil {
		s.logger.Error("inbound message not stored", zap.String("message_id", msg.ID), zap.Error(err))
		return true
	}
	if !inserted {
		observability.IncDuplicateMessage()
		s.logger.Debug("duplicate message ignored", zap.String("message_id", msg.ID))
		return true
	}
	observability.IncMessageStored("remote")
	s.messageStored(ctx, msg)
	return true
}
