package origination

import (
	"context"
	"time"

	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ApplicationFilter narrows application listings
type ApplicationFilter struct {
	shared.Filter
	Status       *ApplicationStatus
	ProductType  *ProductType
	CreatedBy    *uuid.UUID
	TargetBankID *uuid.UUID
	Statuses     []ApplicationStatus
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// ApplicationRepository defines the interface for application persistence
type ApplicationRepository interface {
	// FindByID finds an application by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Application, error)

	// FindAll lists applications and returns the total count for the filter
	FindAll(ctx context.Context, filter ApplicationFilter) ([]Application, int64, error)

	// FindSubmittedInStatuses lists applications that have an external id
	// and are in one of statuses, oldest sync first
	FindSubmittedInStatuses(ctx context.Context, statuses []ApplicationStatus, limit int) ([]Application, error)

	// Create inserts a new application
	Create(ctx context.Context, app *Application) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, app *Application) error
}

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	// FindByID finds a document by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindByApplication returns every version of every document of an application
	FindByApplication(ctx context.Context, applicationID uuid.UUID) ([]Document, error)

	// Create inserts a new document version
	Create(ctx context.Context, doc *Document) error

	// UpdateReview stores a review verdict on a pending document
	UpdateReview(ctx context.Context, doc *Document) error
}

// ChatMessageRepository defines the interface for chat persistence
type ChatMessageRepository interface {
	// Append assigns the next sequence and CreatedAt and inserts the message
	Append(ctx context.Context, msg *ChatMessage) error

	// ListAfter returns up to limit messages with sequence > since in order
	ListAfter(ctx context.Context, applicationID uuid.UUID, since int64, limit int) ([]ChatMessage, error)
}
