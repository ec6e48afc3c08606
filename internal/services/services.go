package services

import (
	"context"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"chat-node/internal/models"
	"chat-node/internal/observability"
	"chat-node/internal/store"
)

var tracer = otel.Tracer("chat-node/services")

// Transport reaches a named peer. reply is decoded in place on success.
type Transport interface {
	Call(ctx context.Context, peer, op string, payload, reply any) error
}

// Notifier receives local state changes for live clients.
type Notifier interface {
	MessageStored(msg models.ChatMessage)
	ConversationUpdated(summary models.ConversationSummary)
}

type Settings struct {
	NodeID      string
	CallTimeout time.Duration
	FileTimeout time.Duration
	// Parallelism bounds concurrent outbound calls per fan-out; 1 is sequential.
	Parallelism int
	FilesRoot   string
	Now         func() time.Time
}

func (s Settings) withDefaults() Settings {
	if s.CallTimeout <= 0 {
		s.CallTimeout = 30 * time.Second
	}
	if s.FileTimeout <= 0 {
		s.FileTimeout = s.CallTimeout
	}
	if s.Parallelism < 1 {
		s.Parallelism = 1
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	return s
}

// replicator is shared by the services that mutate the store and push the
// change to peers.
type replicator struct {
	store     *store.Store
	transport Transport
	settings  Settings
	logger    *zap.Logger
	notifier  Notifier
}

func newReplicator(st *store.Store, transport Transport, settings Settings, logger *zap.Logger) replicator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return replicator{
		store:     st,
		transport: transport,
		settings:  settings.withDefaults(),
		logger:    logger,
	}
}

type delivery struct {
	peer string
	err  error
}

// fanout issues one call per peer. Failures are collected, never returned.
// Calls outlive the caller's cancellation but each one is bounded by the
// configured timeout.
func (r *replicator) fanout(ctx context.Context, op string, peers []string, payload any, fields ...zap.Field) models.ReplicationReport {
	report := models.ReplicationReport{
		Attempted: len(peers),
		Delivered: []string{},
		Failed:    []models.PeerFailure{},
	}
	if len(peers) == 0 {
		return report
	}

	base := context.WithoutCancel(ctx)
	p := pool.NewWithResults[delivery]().WithMaxGoroutines(r.settings.Parallelism)
	for _, peer := range peers {
		peer := peer
		p.Go(func() delivery {
			callCtx, cancel := context.WithTimeout(base, r.settings.CallTimeout)
			defer cancel()
			var ack models.Ack
			return delivery{peer: peer, err: r.transport.Call(callCtx, peer, op, payload, &ack)}
		})
	}

	for _, d := range p.Wait() {
		if d.err != nil {
			r.logger.Warn("peer delivery failed",
				append(fields,
					zap.String("op", op),
					zap.String("peer", d.peer),
					zap.Error(d.err),
				)...,
			)
			report.Failed = append(report.Failed, models.PeerFailure{Peer: d.peer, Error: d.err.Error()})
			continue
		}
		report.Delivered = append(report.Delivered, d.peer)
	}
	sort.Strings(report.Delivered)
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Peer < report.Failed[j].Peer })
	return report
}

func (r *replicator) messageStored(ctx context.Context, msg models.ChatMessage) {
	if r.notifier != nil {
		r.notifier.MessageStored(msg)
	}
	r.publish(ctx, observability.EventMessageStored, msg)
	if conv, ok := r.store.Get(msg.ConversationID); ok {
		r.conversationUpdated(ctx, conv)
	}
}

func (r *replicator) conversationUpdated(ctx context.Context, conv models.Conversation) {
	summary := conv.Summary()
	if r.notifier != nil {
		r.notifier.ConversationUpdated(summary)
	}
	r.publish(ctx, observability.EventConversationUpdated, summary)
}

func (r *replicator) publish(ctx context.Context, routingKey string, payload any) {
	envelope := observability.EventEnvelope{
		EventType: "domain_event",
		EventName: routingKey,
		NodeID:    r.settings.NodeID,
		Payload:   payload,
	}
	headers := observability.BuildHeaders(
		observability.RequestIDFromContext(ctx),
		observability.TraceIDFromContext(ctx),
	)
	if err := observability.PublishEvent(ctx, routingKey, envelope, headers); err != nil {
		r.logger.Warn("event publish failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func (r *replicator) now() string {
	return models.FormatTimestamp(r.settings.Now())
}

func without(identities []string, drop string) []string {
	out := make([]string, 0, len(identities))
	for _, id := range identities {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
