package event

import (
	"context"

	"github.com/finhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes every published event as a structured log line with
// its JSON payload. Subscribed as a wildcard handler.
type AuditLogHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(serializer *EventSerializer, logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		serializer: serializer,
		logger:     logger.Named("audit"),
	}
}

// EventTypes returns nil: the handler receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event. Unknown types are logged without a payload.
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	if !h.serializer.IsRegistered(event.EventType()) {
		h.logger.Warn("unregistered domain event", fields...)
		return nil
	}

	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}
	h.logger.Info("domain event", append(fields, zap.ByteString("payload", payload))...)
	return nil
}

// Ensure AuditLogHandler implements EventHandler
var _ shared.EventHandler = (*AuditLogHandler)(nil)
