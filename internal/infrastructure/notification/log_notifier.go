// Package notification delivers application notifications to people.
package notification

import (
	"context"

	apporig "github.com/finhub/backend/internal/application/origination"
	"go.uber.org/zap"
)

// LogNotifier writes notifications to the log instead of delivering them.
// Used until an email or messenger channel is connected.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new logging notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger.Named("notifier"),
	}
}

// Notify logs one line per recipient
func (n *LogNotifier) Notify(ctx context.Context, notification apporig.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, recipient := range notification.Recipients {
		n.logger.Info("notification",
			zap.String("application_id", notification.ApplicationID.String()),
			zap.String("kind", notification.Kind),
			zap.String("recipient_id", recipient.UserID.String()),
			zap.String("recipient_role", string(recipient.Role)),
			zap.String("subject", notification.Subject),
			zap.String("body", notification.Body),
		)
	}
	return nil
}

// Ensure LogNotifier implements Notifier
var _ apporig.Notifier = (*LogNotifier)(nil)
