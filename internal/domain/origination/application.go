package origination

import (
	"fmt"
	"strings"
	"time"

	"github.com/finhub/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxNotesLength caps free-form notes on an application
const MaxNotesLength = 2000

// Application is the aggregate root tracking one financial-product request
// from draft to resolution
type Application struct {
	shared.BaseAggregateRoot
	ProductType       ProductType
	Amount            decimal.Decimal
	TermMonths        int
	Status            ApplicationStatus
	ExternalID        *string // bank ticket, set once
	BankStatus        *string // verbatim from the bank
	BankStatusID      *string
	SigningURL        *string
	CreatedBy         ActorRef
	TargetBankID      uuid.UUID
	Notes             string
	InfoRequestCycles int
	StatusChangedAt   time.Time
	SubmittedToBankAt *time.Time
	LastSyncedAt      *time.Time
}

// NewApplication creates a draft application
func NewApplication(productType ProductType, amount decimal.Decimal, termMonths int, targetBankID uuid.UUID, notes string, createdBy ActorRef) (*Application, error) {
	if !productType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown product type %q", productType))
	}
	if !ValidAmount(amount) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Amount must be positive")
	}
	if termMonths < MinTermMonths || termMonths > MaxTermMonths {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Term must be between %d and %d months", MinTermMonths, MaxTermMonths))
	}
	if targetBankID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Target bank cannot be empty")
	}
	notes = strings.TrimSpace(notes)
	if len(notes) > MaxNotesLength {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Notes cannot exceed %d characters", MaxNotesLength))
	}

	app := &Application{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductType:       productType,
		Amount:            amount,
		TermMonths:        termMonths,
		Status:            StatusDraft,
		CreatedBy:         createdBy,
		TargetBankID:      targetBankID,
		Notes:             notes,
	}
	app.StatusChangedAt = app.CreatedAt

	app.AddDomainEvent(NewApplicationCreatedEvent(app))

	return app, nil
}

// Apply feeds an event through the state machine and records the result.
// A self-loop leaves StatusChangedAt untouched and raises no event.
func (a *Application) Apply(event StatusEvent) error {
	next, err := Transition(a.Status, event)
	if err != nil {
		return err
	}
	if next == a.Status {
		return nil
	}

	from := a.Status
	a.Status = next
	a.StatusChangedAt = a.Touch()
	if next == StatusInfoRequested {
		a.InfoRequestCycles++
	}

	a.AddDomainEvent(NewApplicationStatusChangedEvent(a, from, event))
	return nil
}

// CanRequestInfo reports whether another info_requested cycle fits under
// maxCycles. Zero means unlimited.
func (a *Application) CanRequestInfo(maxCycles int) bool {
	return maxCycles <= 0 || a.InfoRequestCycles < maxCycles
}

// IsSubmittedToBank reports whether the bank has issued a ticket
func (a *Application) IsSubmittedToBank() bool {
	return a.ExternalID != nil
}

// MarkSubmittedToBank records the bank's ticket and acknowledges submission.
// The external id can be assigned only once.
func (a *Application) MarkSubmittedToBank(ticket BankTicket) error {
	if a.ExternalID != nil {
		return shared.ErrAlreadySubmitted
	}
	if strings.TrimSpace(ticket.TicketID) == "" {
		return shared.NewDomainError(shared.CodeExternalUnavailable, "Bank returned an empty ticket id")
	}
	if err := a.Apply(EventSendToBankAck); err != nil {
		return err
	}

	now := a.Touch()
	ticketID := ticket.TicketID
	a.ExternalID = &ticketID
	if ticket.BankStatus != "" {
		bankStatus := ticket.BankStatus
		a.BankStatus = &bankStatus
	}
	a.SubmittedToBankAt = &now
	a.LastSyncedAt = &now

	a.AddDomainEvent(NewApplicationSubmittedToBankEvent(a))
	return nil
}

// BankSyncOutcome describes what a status report did to the application
type BankSyncOutcome struct {
	PreviousStatus     ApplicationStatus
	PreviousBankStatus *string
	Event              StatusEvent
	Applied            bool
	Changed            bool
}

// RecordBankStatus stores a bank status report and applies event when the
// raw status differs from the stored one and event is defined for the
// current status. The raw status is always recorded.
func (a *Application) RecordBankStatus(report BankStatusReport, event StatusEvent) (BankSyncOutcome, error) {
	if a.ExternalID == nil {
		return BankSyncOutcome{}, shared.NewDomainError(shared.CodeInvalidState, "Application has not been submitted to the bank")
	}

	outcome := BankSyncOutcome{
		PreviousStatus:     a.Status,
		PreviousBankStatus: a.BankStatus,
		Event:              event,
	}

	raw := report.BankStatus
	outcome.Changed = outcome.PreviousBankStatus == nil || *outcome.PreviousBankStatus != raw

	// a report repeating the stored status carries no new decision
	if outcome.Changed && event != EventNone && CanApply(a.Status, event) {
		if err := a.Apply(event); err != nil {
			return BankSyncOutcome{}, err
		}
		outcome.Applied = true
	}

	a.BankStatus = &raw
	if report.BankStatusID != "" {
		id := report.BankStatusID
		a.BankStatusID = &id
	}
	if report.SigningURL != "" {
		url := report.SigningURL
		a.SigningURL = &url
	}
	now := a.Touch()
	a.LastSyncedAt = &now

	a.AddDomainEvent(NewBankStatusRefreshedEvent(a, outcome))
	return outcome, nil
}

// Step returns the stepper position of the current status
func (a *Application) Step() int {
	return DeriveStep(a.Status)
}

// IsRejected reports whether the application was rejected
func (a *Application) IsRejected() bool {
	return IsRejected(a.Status)
}

// IsStalled reports whether the application has waited in sent_to_bank for
// longer than threshold. A zero threshold disables detection.
func (a *Application) IsStalled(threshold time.Duration, now time.Time) bool {
	if threshold <= 0 || a.Status != StatusSentToBank {
		return false
	}
	return now.Sub(a.StatusChangedAt) > threshold
}

// OwnedBy reports whether the user created the application
func (a *Application) OwnedBy(userID uuid.UUID) bool {
	return a.CreatedBy.UserID == userID
}
