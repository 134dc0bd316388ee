package origination

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankSubmission is what the bank receives when an application is submitted.
// ClientReference carries the application id so a retried call can be
// deduplicated on the bank's side.
type BankSubmission struct {
	ClientReference uuid.UUID          `json:"client_reference"`
	TargetBankID    uuid.UUID          `json:"target_bank_id"`
	ProductType     ProductType        `json:"product_type"`
	Amount          decimal.Decimal    `json:"amount"`
	TermMonths      int                `json:"term_months"`
	Notes           string             `json:"notes,omitempty"`
	Documents       []BankDocumentLink `json:"documents,omitempty"`
}

// BankDocumentLink references a current document handed over to the bank
type BankDocumentLink struct {
	Type        DocumentType `json:"type"`
	Version     int          `json:"version"`
	FileName    string       `json:"file_name"`
	ContentType string       `json:"content_type"`
	StorageKey  string       `json:"storage_key"`
}

// BankTicket is the bank's acknowledgement of a submission
type BankTicket struct {
	TicketID   string `json:"ticket_id"`
	BankStatus string `json:"bank_status"`
}

// BankStatusReport is the bank's view of a submitted application
type BankStatusReport struct {
	BankStatus   string `json:"bank_status"`
	BankStatusID string `json:"bank_status_id,omitempty"`
	SigningURL   string `json:"signing_url,omitempty"`
}

// BankSystem is the external partner-bank system.
// Implementations must honour ctx deadlines and return errors matching
// shared.ErrExternalUnavailable or shared.ErrTimeout.
type BankSystem interface {
	Submit(ctx context.Context, submission BankSubmission) (*BankTicket, error)
	FetchStatus(ctx context.Context, ticketID string) (*BankStatusReport, error)
}
