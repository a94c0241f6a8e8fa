// Package events fans stored messages out to websocket rooms and the event exchange.
package events

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"chat-core/internal/logger"
	"chat-core/internal/models"
	"chat-core/internal/observability"
	"chat-core/internal/ws"
)

const (
	RoutingPrivateSent   = "chat.private.sent"
	RoutingPrivateEdited = "chat.private.edited"
	RoutingGroupPosted   = "chat.group.posted"
	RoutingGroupSkipped  = "chat.group.skipped"
)

// Broadcaster delivers an event to the live connections of a room.
type Broadcaster interface {
	Broadcast(room ws.Room, event any) int
}

// Dispatcher notifies connected clients and downstream consumers after a write has
// been stored. Delivery is best effort; failures are logged and never undo the write.
type Dispatcher struct {
	rooms Broadcaster
}

func NewDispatcher(rooms Broadcaster) *Dispatcher {
	return &Dispatcher{rooms: rooms}
}

type requestIDKey struct{}

// WithRequestID attaches the request id used for event headers.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (d *Dispatcher) publish(ctx context.Context, routingKey, name string, payload any) {
	traceID := ""
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	err := observability.PublishEvent(ctx, routingKey, observability.EventEnvelope{
		EventType: "chat_events",
		EventName: name,
		Payload:   payload,
	}, observability.BuildHeaders(requestIDFrom(ctx), traceID))
	if err != nil {
		logger.Warn("chat event publish failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

// PrivateSent pushes msg to both participants' sessions.
func (d *Dispatcher) PrivateSent(ctx context.Context, msg models.Message) {
	d.rooms.Broadcast(ws.UserRoom(msg.To), models.ChatEvent{Type: models.EventMessage, Peer: msg.From, Message: &msg})
	if msg.From != msg.To {
		d.rooms.Broadcast(ws.UserRoom(msg.From), models.ChatEvent{Type: models.EventMessage, Peer: msg.To, Message: &msg})
	}
	d.publish(ctx, RoutingPrivateSent, "private_message_sent", msg)
}

// PrivateEdited notifies editor and peer that msg changed.
func (d *Dispatcher) PrivateEdited(ctx context.Context, editor, peer string, msg models.Message) {
	d.rooms.Broadcast(ws.UserRoom(peer), models.ChatEvent{Type: models.EventEdit, Peer: editor, Message: &msg})
	if editor != peer {
		d.rooms.Broadcast(ws.UserRoom(editor), models.ChatEvent{Type: models.EventEdit, Peer: peer, Message: &msg})
	}
	d.publish(ctx, RoutingPrivateEdited, "private_message_edited", map[string]interface{}{
		"editor":  editor,
		"peer":    peer,
		"message": msg,
	})
}

// GroupPosted pushes msg to everyone viewing the group.
func (d *Dispatcher) GroupPosted(ctx context.Context, msg models.Message) {
	d.rooms.Broadcast(ws.GroupRoom(msg.ToGroup), models.GroupEvent{Type: models.EventMessage, Group: msg.ToGroup, Message: &msg})
	d.publish(ctx, RoutingGroupPosted, "group_message_posted", msg)
}

// GroupSkipped records a post that was dropped without being stored.
func (d *Dispatcher) GroupSkipped(ctx context.Context, group, from, reason string) {
	d.publish(ctx, RoutingGroupSkipped, "group_message_skipped", map[string]interface{}{
		"group":  group,
		"from":   from,
		"reason": reason,
	})
}
