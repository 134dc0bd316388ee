package origination

import (
	"context"
	"fmt"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Notification kinds
const (
	NotificationStatusChanged    = "status_changed"
	NotificationDocumentRejected = "document_rejected"
	NotificationNewMessage       = "new_message"
	NotificationStalled          = "application_stalled"
)

// NotificationHandler forwards lifecycle events to the Notifier
type NotificationHandler struct {
	apps     origination.ApplicationRepository
	notifier Notifier
	logger   *zap.Logger
}

// NewNotificationHandler creates a new handler for notification-worthy events
func NewNotificationHandler(
	apps origination.ApplicationRepository,
	notifier Notifier,
	logger *zap.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		apps:     apps,
		notifier: notifier,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		origination.EventTypeApplicationStatusChanged,
		origination.EventTypeDocumentReviewed,
		origination.EventTypeChatMessagePosted,
		origination.EventTypeApplicationStalled,
	}
}

// Handle converts a domain event into a notification
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var notification Notification

	switch e := event.(type) {
	case *origination.ApplicationStatusChangedEvent:
		notification = Notification{
			ApplicationID: e.ApplicationID,
			Recipients:    []origination.ActorRef{e.CreatedBy},
			Kind:          NotificationStatusChanged,
			Subject:       fmt.Sprintf("Application status: %s", e.To),
			Body:          fmt.Sprintf("Your application moved from %s to %s.", e.From, e.To),
		}
	case *origination.DocumentReviewedEvent:
		if e.Outcome != origination.DocumentStatusRejected {
			return nil
		}
		notification = Notification{
			ApplicationID: e.ApplicationID,
			Recipients:    []origination.ActorRef{e.UploadedBy},
			Kind:          NotificationDocumentRejected,
			Subject:       fmt.Sprintf("Document %s was rejected", e.DocumentType),
			Body:          fmt.Sprintf("Version %d of %s was rejected: %s", e.Version, e.DocumentType, e.Comment),
		}
	case *origination.ChatMessagePostedEvent:
		app, err := h.apps.FindByID(ctx, e.ApplicationID)
		if err != nil {
			return fmt.Errorf("load application for chat notification: %w", err)
		}
		if app.CreatedBy.UserID == e.Sender.UserID {
			return nil
		}
		notification = Notification{
			ApplicationID: e.ApplicationID,
			Recipients:    []origination.ActorRef{app.CreatedBy},
			Kind:          NotificationNewMessage,
			Subject:       "New message on your application",
			Body:          fmt.Sprintf("Message #%d from %s", e.Sequence, e.Sender.Role),
		}
	case *origination.ApplicationStalledEvent:
		notification = Notification{
			ApplicationID: e.ApplicationID,
			Recipients:    []origination.ActorRef{{Role: origination.RoleAdmin}},
			Kind:          NotificationStalled,
			Subject:       "Application stalled at the bank",
			Body:          fmt.Sprintf("Ticket %s has not moved for %s", e.ExternalID, e.StalledFor.Round(time.Second)),
		}
	default:
		h.logger.Error("unexpected event type", zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	if err := h.notifier.Notify(ctx, notification); err != nil {
		h.logger.Warn("notification delivery failed",
			zap.String("application_id", notification.ApplicationID.String()),
			zap.String("kind", notification.Kind),
			zap.Error(err),
		)
		return err
	}
	return nil
}
