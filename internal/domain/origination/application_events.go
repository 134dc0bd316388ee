package origination

import (
	"time"

	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeApplication = "Application"

// Event type constants
const (
	EventTypeApplicationCreated         = "ApplicationCreated"
	EventTypeApplicationStatusChanged   = "ApplicationStatusChanged"
	EventTypeApplicationSubmittedToBank = "ApplicationSubmittedToBank"
	EventTypeBankStatusRefreshed        = "BankStatusRefreshed"
	EventTypeDocumentUploaded           = "DocumentUploaded"
	EventTypeDocumentReviewed           = "DocumentReviewed"
	EventTypeChatMessagePosted          = "ChatMessagePosted"
	EventTypeApplicationStalled         = "ApplicationStalled"
)

// ApplicationCreatedEvent is raised when a draft is created
type ApplicationCreatedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID       `json:"application_id"`
	ProductType   ProductType     `json:"product_type"`
	Amount        decimal.Decimal `json:"amount"`
	TermMonths    int             `json:"term_months"`
	TargetBankID  uuid.UUID       `json:"target_bank_id"`
	CreatedBy     ActorRef        `json:"created_by"`
}

// NewApplicationCreatedEvent creates a new ApplicationCreatedEvent
func NewApplicationCreatedEvent(app *Application) *ApplicationCreatedEvent {
	return &ApplicationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationCreated, AggregateTypeApplication, app.ID),
		ApplicationID:   app.ID,
		ProductType:     app.ProductType,
		Amount:          app.Amount,
		TermMonths:      app.TermMonths,
		TargetBankID:    app.TargetBankID,
		CreatedBy:       app.CreatedBy,
	}
}

// EventType returns the event type name
func (e *ApplicationCreatedEvent) EventType() string {
	return EventTypeApplicationCreated
}

// ApplicationStatusChangedEvent is raised on every canonical status change
type ApplicationStatusChangedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID         `json:"application_id"`
	From          ApplicationStatus `json:"from"`
	To            ApplicationStatus `json:"to"`
	Trigger       StatusEvent       `json:"trigger"`
	CreatedBy     ActorRef          `json:"created_by"`
}

// NewApplicationStatusChangedEvent creates a new ApplicationStatusChangedEvent
func NewApplicationStatusChangedEvent(app *Application, from ApplicationStatus, trigger StatusEvent) *ApplicationStatusChangedEvent {
	return &ApplicationStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationStatusChanged, AggregateTypeApplication, app.ID),
		ApplicationID:   app.ID,
		From:            from,
		To:              app.Status,
		Trigger:         trigger,
		CreatedBy:       app.CreatedBy,
	}
}

// EventType returns the event type name
func (e *ApplicationStatusChangedEvent) EventType() string {
	return EventTypeApplicationStatusChanged
}

// ApplicationSubmittedToBankEvent is raised once the bank issued a ticket
type ApplicationSubmittedToBankEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
	ExternalID    string    `json:"external_id"`
	TargetBankID  uuid.UUID `json:"target_bank_id"`
}

// NewApplicationSubmittedToBankEvent creates a new ApplicationSubmittedToBankEvent
func NewApplicationSubmittedToBankEvent(app *Application) *ApplicationSubmittedToBankEvent {
	event := &ApplicationSubmittedToBankEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationSubmittedToBank, AggregateTypeApplication, app.ID),
		ApplicationID:   app.ID,
		TargetBankID:    app.TargetBankID,
	}
	if app.ExternalID != nil {
		event.ExternalID = *app.ExternalID
	}
	return event
}

// EventType returns the event type name
func (e *ApplicationSubmittedToBankEvent) EventType() string {
	return EventTypeApplicationSubmittedToBank
}

// BankStatusRefreshedEvent is raised for every recorded bank status report
type BankStatusRefreshedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID         `json:"application_id"`
	BankStatus    string            `json:"bank_status"`
	MappedEvent   StatusEvent       `json:"mapped_event"`
	Applied       bool              `json:"applied"`
	Changed       bool              `json:"changed"`
	Status        ApplicationStatus `json:"status"`
}

// NewBankStatusRefreshedEvent creates a new BankStatusRefreshedEvent
func NewBankStatusRefreshedEvent(app *Application, outcome BankSyncOutcome) *BankStatusRefreshedEvent {
	event := &BankStatusRefreshedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankStatusRefreshed, AggregateTypeApplication, app.ID),
		ApplicationID:   app.ID,
		MappedEvent:     outcome.Event,
		Applied:         outcome.Applied,
		Changed:         outcome.Changed,
		Status:          app.Status,
	}
	if app.BankStatus != nil {
		event.BankStatus = *app.BankStatus
	}
	return event
}

// EventType returns the event type name
func (e *BankStatusRefreshedEvent) EventType() string {
	return EventTypeBankStatusRefreshed
}

// DocumentUploadedEvent is raised when a new document version is stored
type DocumentUploadedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID    `json:"application_id"`
	DocumentID    uuid.UUID    `json:"document_id"`
	DocumentType  DocumentType `json:"document_type"`
	Version       int          `json:"version"`
	UploadedBy    ActorRef     `json:"uploaded_by"`
}

// NewDocumentUploadedEvent creates a new DocumentUploadedEvent
func NewDocumentUploadedEvent(doc *Document) *DocumentUploadedEvent {
	return &DocumentUploadedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentUploaded, AggregateTypeApplication, doc.ApplicationID),
		ApplicationID:   doc.ApplicationID,
		DocumentID:      doc.ID,
		DocumentType:    doc.Type,
		Version:         doc.Version,
		UploadedBy:      doc.UploadedBy,
	}
}

// EventType returns the event type name
func (e *DocumentUploadedEvent) EventType() string {
	return EventTypeDocumentUploaded
}

// DocumentReviewedEvent is raised when a reviewer verifies or rejects a document
type DocumentReviewedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID      `json:"application_id"`
	DocumentID    uuid.UUID      `json:"document_id"`
	DocumentType  DocumentType   `json:"document_type"`
	Version       int            `json:"version"`
	Outcome       DocumentStatus `json:"outcome"`
	Comment       string         `json:"comment,omitempty"`
	UploadedBy    ActorRef       `json:"uploaded_by"`
}

// NewDocumentReviewedEvent creates a new DocumentReviewedEvent
func NewDocumentReviewedEvent(doc *Document) *DocumentReviewedEvent {
	return &DocumentReviewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentReviewed, AggregateTypeApplication, doc.ApplicationID),
		ApplicationID:   doc.ApplicationID,
		DocumentID:      doc.ID,
		DocumentType:    doc.Type,
		Version:         doc.Version,
		Outcome:         doc.Status,
		Comment:         doc.ReviewComment,
		UploadedBy:      doc.UploadedBy,
	}
}

// EventType returns the event type name
func (e *DocumentReviewedEvent) EventType() string {
	return EventTypeDocumentReviewed
}

// ChatMessagePostedEvent is raised after a chat message is stored
type ChatMessagePostedEvent struct {
	shared.BaseDomainEvent
	ApplicationID uuid.UUID `json:"application_id"`
	MessageID     uuid.UUID `json:"message_id"`
	Sequence      int64     `json:"sequence"`
	Sender        ActorRef  `json:"sender"`
	HasAttachment bool      `json:"has_attachment"`
}

// NewChatMessagePostedEvent creates a new ChatMessagePostedEvent
func NewChatMessagePostedEvent(msg *ChatMessage) *ChatMessagePostedEvent {
	return &ChatMessagePostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeChatMessagePosted, AggregateTypeApplication, msg.ApplicationID),
		ApplicationID:   msg.ApplicationID,
		MessageID:       msg.ID,
		Sequence:        msg.Sequence,
		Sender:          msg.Sender,
		HasAttachment:   msg.HasAttachment(),
	}
}

// EventType returns the event type name
func (e *ChatMessagePostedEvent) EventType() string {
	return EventTypeChatMessagePosted
}

// ApplicationStalledEvent is raised by the poller for applications stuck at the bank
type ApplicationStalledEvent struct {
	shared.BaseDomainEvent
	ApplicationID   uuid.UUID     `json:"application_id"`
	ExternalID      string        `json:"external_id"`
	StatusChangedAt time.Time     `json:"status_changed_at"`
	StalledFor      time.Duration `json:"stalled_for"`
}

// NewApplicationStalledEvent creates a new ApplicationStalledEvent
func NewApplicationStalledEvent(app *Application, now time.Time) *ApplicationStalledEvent {
	event := &ApplicationStalledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeApplicationStalled, AggregateTypeApplication, app.ID),
		ApplicationID:   app.ID,
		StatusChangedAt: app.StatusChangedAt,
		StalledFor:      now.Sub(app.StatusChangedAt),
	}
	if app.ExternalID != nil {
		event.ExternalID = *app.ExternalID
	}
	return event
}

// EventType returns the event type name
func (e *ApplicationStalledEvent) EventType() string {
	return EventTypeApplicationStalled
}
