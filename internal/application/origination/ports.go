package origination

import (
	"context"
	"errors"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransactionScope provides transactional access to origination repositories.
// If fn returns an error the transaction is rolled back, otherwise committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all origination repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// ApplicationRepo returns the application repository scoped to the current transaction
	ApplicationRepo() origination.ApplicationRepository
	// DocumentRepo returns the document repository scoped to the current transaction
	DocumentRepo() origination.DocumentRepository
	// ChatMessageRepo returns the chat repository scoped to the current transaction
	ChatMessageRepo() origination.ChatMessageRepository
}

// ErrLockNotAcquired is returned by an ApplicationLocker when the wait expires
var ErrLockNotAcquired = errors.New("application lock not acquired")

// ApplicationLocker serializes mutations of a single application.
// TryLock waits a bounded time; on success the caller must invoke release.
type ApplicationLocker interface {
	TryLock(ctx context.Context, applicationID uuid.UUID) (release func(), err error)
}

// ObjectStorage holds document and attachment bytes.
// Implemented by the infrastructure layer (S3-compatible storage or in-memory).
type ObjectStorage interface {
	// GenerateUploadURL generates a presigned URL for uploading a file
	// Returns the upload URL and expiration time
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// Upload stores data under storageKey
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// Notifier delivers human-facing notifications (email, messenger...) for domain events
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// Notification is a delivery-agnostic message for the parties of an application
type Notification struct {
	ApplicationID uuid.UUID
	Recipients    []origination.ActorRef
	Kind          string
	Subject       string
	Body          string
}

// SyncMetrics records bank synchronization and lifecycle measurements
type SyncMetrics interface {
	RecordBankCall(ctx context.Context, operation string, err error, elapsed time.Duration)
	RecordTransition(ctx context.Context, from, to origination.ApplicationStatus)
	RecordStalled(ctx context.Context, count int)
}

type noopSyncMetrics struct{}

func (noopSyncMetrics) RecordBankCall(context.Context, string, error, time.Duration) {}
func (noopSyncMetrics) RecordTransition(context.Context, origination.ApplicationStatus, origination.ApplicationStatus) {
}
func (noopSyncMetrics) RecordStalled(context.Context, int) {}

// publishEvents publishes and then clears events. Failures are returned
// joined; state is already committed at this point.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, events []shared.DomainEvent) error {
	if publisher == nil || len(events) == 0 {
		return nil
	}
	return publisher.Publish(ctx, events...)
}
