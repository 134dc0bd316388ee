package origination

import (
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Application DTOs ====================

// CreateDraftRequest represents a request to create a draft application
type CreateDraftRequest struct {
	ProductType  origination.ProductType
	Amount       decimal.Decimal
	TermMonths   int
	TargetBankID uuid.UUID
	Notes        string
}

// ApplicationListFilter represents filter options for application listings
type ApplicationListFilter struct {
	Page         int
	PageSize     int
	OrderBy      string
	OrderDir     string
	Status       *origination.ApplicationStatus
	ProductType  *origination.ProductType
	TargetBankID *uuid.UUID
}

// ActorResponse identifies a user and the role they acted in
type ActorResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

// ApplicationResponse represents an application with derived display flags
type ApplicationResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductType       string          `json:"product_type"`
	Amount            decimal.Decimal `json:"amount"`
	TermMonths        int             `json:"term_months"`
	Status            string          `json:"status"`
	Step              int             `json:"step"`
	StepCount         int             `json:"step_count"`
	Rejected          bool            `json:"rejected"`
	Terminal          bool            `json:"terminal"`
	Stalled           bool            `json:"stalled"`
	ExternalID        *string         `json:"external_id,omitempty"`
	BankStatus        *string         `json:"bank_status,omitempty"`
	BankStatusID      *string         `json:"bank_status_id,omitempty"`
	SigningURL        *string         `json:"signing_url,omitempty"`
	CreatedBy         ActorResponse   `json:"created_by"`
	TargetBankID      uuid.UUID       `json:"target_bank_id"`
	Notes             string          `json:"notes,omitempty"`
	InfoRequestCycles int             `json:"info_request_cycles"`
	StatusChangedAt   time.Time       `json:"status_changed_at"`
	SubmittedToBankAt *time.Time      `json:"submitted_to_bank_at,omitempty"`
	LastSyncedAt      *time.Time      `json:"last_synced_at,omitempty"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToApplicationResponse converts a domain Application to ApplicationResponse
func ToApplicationResponse(app *origination.Application, stalledAfter time.Duration, now time.Time) ApplicationResponse {
	return ApplicationResponse{
		ID:                app.ID,
		ProductType:       string(app.ProductType),
		Amount:            app.Amount,
		TermMonths:        app.TermMonths,
		Status:            string(app.Status),
		Step:              app.Step(),
		StepCount:         origination.StepCount,
		Rejected:          app.IsRejected(),
		Terminal:          origination.IsTerminal(app.Status),
		Stalled:           app.IsStalled(stalledAfter, now),
		ExternalID:        app.ExternalID,
		BankStatus:        app.BankStatus,
		BankStatusID:      app.BankStatusID,
		SigningURL:        app.SigningURL,
		CreatedBy:         toActorResponse(app.CreatedBy),
		TargetBankID:      app.TargetBankID,
		Notes:             app.Notes,
		InfoRequestCycles: app.InfoRequestCycles,
		StatusChangedAt:   app.StatusChangedAt,
		SubmittedToBankAt: app.SubmittedToBankAt,
		LastSyncedAt:      app.LastSyncedAt,
		Version:           app.Version,
		CreatedAt:         app.CreatedAt,
		UpdatedAt:         app.UpdatedAt,
	}
}

func toActorResponse(ref origination.ActorRef) ActorResponse {
	return ActorResponse{UserID: ref.UserID, Role: string(ref.Role)}
}

// TransitionRequest carries an optional comment for admin transitions
type TransitionRequest struct {
	Comment string
}

// BankSubmitResponse is returned by SubmitToBank
type BankSubmitResponse struct {
	Application ApplicationResponse `json:"application"`
	TicketID    string              `json:"ticket_id"`
}

// BankRefreshResponse is returned by RefreshBankStatus
type BankRefreshResponse struct {
	Application ApplicationResponse `json:"application"`
	Changed     bool                `json:"changed"`
	Applied     bool                `json:"applied"`
	MappedEvent string              `json:"mapped_event"`
}

// ==================== Document DTOs ====================

// UploadDocumentRequest uploads either raw bytes (Data) or registers an
// object already put through a presigned URL (StorageKey)
type UploadDocumentRequest struct {
	Type        origination.DocumentType
	FileName    string
	ContentType string
	Size        int64
	StorageKey  string
	Data        []byte
}

// ReviewDocumentRequest represents a reviewer's verdict
type ReviewDocumentRequest struct {
	Outcome origination.DocumentStatus
	Comment string
}

// InitiateUploadRequest asks for a presigned document upload URL
type InitiateUploadRequest struct {
	Type        origination.DocumentType
	FileName    string
	ContentType string
	Size        int64
}

// InitiateUploadResponse carries the presigned URL and the key to register afterwards
type InitiateUploadResponse struct {
	UploadURL  string    `json:"upload_url"`
	StorageKey string    `json:"storage_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// DocumentResponse represents one document version
type DocumentResponse struct {
	ID            uuid.UUID      `json:"id"`
	ApplicationID uuid.UUID      `json:"application_id"`
	Type          string         `json:"type"`
	Status        string         `json:"status"`
	Version       int            `json:"version"`
	Current       bool           `json:"current"`
	FileName      string         `json:"file_name"`
	ContentType   string         `json:"content_type"`
	Size          int64          `json:"size"`
	UploadedBy    ActorResponse  `json:"uploaded_by"`
	ReviewedBy    *ActorResponse `json:"reviewed_by,omitempty"`
	ReviewComment string         `json:"review_comment,omitempty"`
	ReviewedAt    *time.Time     `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ToDocumentResponse converts a domain Document to DocumentResponse
func ToDocumentResponse(doc *origination.Document, current bool) DocumentResponse {
	resp := DocumentResponse{
		ID:            doc.ID,
		ApplicationID: doc.ApplicationID,
		Type:          string(doc.Type),
		Status:        string(doc.Status),
		Version:       doc.Version,
		Current:       current,
		FileName:      doc.File.FileName,
		ContentType:   doc.File.ContentType,
		Size:          doc.File.Size,
		UploadedBy:    toActorResponse(doc.UploadedBy),
		ReviewComment: doc.ReviewComment,
		ReviewedAt:    doc.ReviewedAt,
		CreatedAt:     doc.CreatedAt,
	}
	if doc.ReviewedBy != nil {
		reviewer := toActorResponse(*doc.ReviewedBy)
		resp.ReviewedBy = &reviewer
	}
	return resp
}

// ToDocumentResponses converts all versions and marks the current ones
func ToDocumentResponses(docs []origination.Document) []DocumentResponse {
	current := origination.CurrentDocuments(docs)
	responses := make([]DocumentResponse, len(docs))
	for i := range docs {
		responses[i] = ToDocumentResponse(&docs[i], current[docs[i].Type].ID == docs[i].ID)
	}
	return responses
}

// ReviewDocumentResponse is returned after a review
type ReviewDocumentResponse struct {
	Document    DocumentResponse    `json:"document"`
	Application ApplicationResponse `json:"application"`
	Resolved    bool                `json:"resolved"`
}

// ==================== Chat DTOs ====================

// AttachmentUpload is a chat attachment posted together with a message
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// PostMessageRequest represents a new chat message
type PostMessageRequest struct {
	Content    string
	Attachment *AttachmentUpload
}

// ChatMessageResponse represents a chat message
type ChatMessageResponse struct {
	ID            uuid.UUID            `json:"id"`
	ApplicationID uuid.UUID            `json:"application_id"`
	Sequence      int64                `json:"sequence"`
	Sender        ActorResponse        `json:"sender"`
	Content       string               `json:"content,omitempty"`
	Attachment    *origination.FileRef `json:"attachment,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ToChatMessageResponse converts a domain ChatMessage to ChatMessageResponse
func ToChatMessageResponse(msg *origination.ChatMessage) ChatMessageResponse {
	return ChatMessageResponse{
		ID:            msg.ID,
		ApplicationID: msg.ApplicationID,
		Sequence:      msg.Sequence,
		Sender:        toActorResponse(msg.Sender),
		Content:       msg.Content,
		Attachment:    msg.Attachment,
		CreatedAt:     msg.CreatedAt,
	}
}

// ListMessagesResponse is one poll result; NextSince is the cursor for the next poll
type ListMessagesResponse struct {
	Messages  []ChatMessageResponse `json:"messages"`
	NextSince int64                 `json:"next_since"`
	HasMore   bool                  `json:"has_more"`
}
