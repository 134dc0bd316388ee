package models

import (
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApplicationModel is the persistence model for the Application aggregate.
type ApplicationModel struct {
	AggregateModel
	ProductType       origination.ProductType       `gorm:"type:varchar(40);not null;index"`
	Amount            decimal.Decimal               `gorm:"type:decimal(18,2);not null"`
	TermMonths        int                           `gorm:"not null"`
	Status            origination.ApplicationStatus `gorm:"type:varchar(30);not null;index"`
	ExternalID        *string                       `gorm:"type:varchar(100);uniqueIndex"`
	BankStatus        *string                       `gorm:"type:varchar(200)"`
	BankStatusID      *string                       `gorm:"type:varchar(100)"`
	SigningURL        *string                       `gorm:"type:varchar(1000)"`
	CreatedByID       uuid.UUID                     `gorm:"type:uuid;not null;index"`
	CreatedByRole     origination.Role              `gorm:"type:varchar(20);not null"`
	TargetBankID      uuid.UUID                     `gorm:"type:uuid;not null;index"`
	Notes             string                        `gorm:"type:text"`
	InfoRequestCycles int                           `gorm:"not null;default:0"`
	StatusChangedAt   time.Time                     `gorm:"not null"`
	SubmittedToBankAt *time.Time
	LastSyncedAt      *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (ApplicationModel) TableName() string {
	return "applications"
}

// ToDomain converts the persistence model to a domain Application.
// Domain events are never persisted, so the result has none pending.
func (m *ApplicationModel) ToDomain() *origination.Application {
	return &origination.Application{
		BaseAggregateRoot: m.aggregate(),
		ProductType:       m.ProductType,
		Amount:            m.Amount,
		TermMonths:        m.TermMonths,
		Status:            m.Status,
		ExternalID:        m.ExternalID,
		BankStatus:        m.BankStatus,
		BankStatusID:      m.BankStatusID,
		SigningURL:        m.SigningURL,
		CreatedBy: origination.ActorRef{
			UserID: m.CreatedByID,
			Role:   m.CreatedByRole,
		},
		TargetBankID:      m.TargetBankID,
		Notes:             m.Notes,
		InfoRequestCycles: m.InfoRequestCycles,
		StatusChangedAt:   m.StatusChangedAt,
		SubmittedToBankAt: m.SubmittedToBankAt,
		LastSyncedAt:      m.LastSyncedAt,
	}
}

// FromDomain populates the persistence model from a domain Application
func (m *ApplicationModel) FromDomain(a *origination.Application) {
	m.AggregateModel = aggregateModelOf(a.BaseAggregateRoot)
	m.ProductType = a.ProductType
	m.Amount = a.Amount
	m.TermMonths = a.TermMonths
	m.Status = a.Status
	m.ExternalID = a.ExternalID
	m.BankStatus = a.BankStatus
	m.BankStatusID = a.BankStatusID
	m.SigningURL = a.SigningURL
	m.CreatedByID = a.CreatedBy.UserID
	m.CreatedByRole = a.CreatedBy.Role
	m.TargetBankID = a.TargetBankID
	m.Notes = a.Notes
	m.InfoRequestCycles = a.InfoRequestCycles
	m.StatusChangedAt = a.StatusChangedAt
	m.SubmittedToBankAt = a.SubmittedToBankAt
	m.LastSyncedAt = a.LastSyncedAt
}

// ApplicationModelFromDomain creates a new persistence model from a domain Application
func ApplicationModelFromDomain(a *origination.Application) *ApplicationModel {
	m := &ApplicationModel{}
	m.FromDomain(a)
	return m
}

// MutableColumns returns the columns a versioned save may change.
// Identity, creator and creation time are immutable.
func (m *ApplicationModel) MutableColumns() map[string]any {
	return map[string]any{
		"product_type":         m.ProductType,
		"amount":               m.Amount,
		"term_months":          m.TermMonths,
		"status":               m.Status,
		"external_id":          m.ExternalID,
		"bank_status":          m.BankStatus,
		"bank_status_id":       m.BankStatusID,
		"signing_url":          m.SigningURL,
		"target_bank_id":       m.TargetBankID,
		"notes":                m.Notes,
		"info_request_cycles":  m.InfoRequestCycles,
		"status_changed_at":    m.StatusChangedAt,
		"submitted_to_bank_at": m.SubmittedToBankAt,
		"last_synced_at":       m.LastSyncedAt,
		"version":              m.Version,
		"updated_at":           m.UpdatedAt,
	}
}
