package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"chat-core/internal/logger"
)

// Audit levels.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// Audit actions recorded by the HTTP surface.
const (
	ActionGroupCreated   = "group.created"
	ActionMemberAdded    = "group.member_added"
	ActionMemberRemoved  = "group.member_removed"
	ActionRequestInvalid = "request.invalid"
	ActionStorageFailure = "storage.failure"
	ActionDebug          = "debug.audit_test"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// Record is one auditable action taken on behalf of a user.
type Record struct {
	Level     string
	Action    string
	Target    string
	Detail    string
	RequestID string
	Username  string
}

type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	TraceID       string       `json:"trace_id,omitempty"`
	Username      string       `json:"username,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level  string `json:"level"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes one audit envelope. Failures are logged and swallowed.
func (e *AuditEmitter) Emit(ctx context.Context, rec Record) {
	if e == nil || e.publisher == nil {
		return
	}
	if rec.Level == "" {
		rec.Level = LevelInfo
	}

	logger.Debug("audit emit",
		zap.String("action", rec.Action),
		zap.String("level", rec.Level),
		zap.String("target", rec.Target),
		zap.String("username", rec.Username),
		zap.String("request_id", rec.RequestID),
	)

	envelope := AuditEnvelope{
		SchemaVersion: 2,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     rec.RequestID,
		Username:      rec.Username,
		Payload: AuditPayload{
			Level:  rec.Level,
			Action: rec.Action,
			Target: rec.Target,
			Detail: rec.Detail,
		},
	}

	headers := map[string]string{"x-request-id": rec.RequestID, "x-audit-action": rec.Action}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		envelope.TraceID = sc.TraceID().String()
		headers["x-trace-id"] = envelope.TraceID
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope, headers); err != nil {
		logger.Warn("audit publish failed", zap.String("action", rec.Action), zap.Error(err))
	}
}
