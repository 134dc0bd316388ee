package models

import (
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/google/uuid"
)

// DocumentModel is the persistence model for one document version.
// (application_id, type, version) is unique.
type DocumentModel struct {
	BaseModel
	ApplicationID  uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:uq_documents_app_type_version,priority:1"`
	Type           origination.DocumentType   `gorm:"type:varchar(50);not null;uniqueIndex:uq_documents_app_type_version,priority:2"`
	Version        int                        `gorm:"not null;uniqueIndex:uq_documents_app_type_version,priority:3"`
	Status         origination.DocumentStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	StorageKey     string                     `gorm:"type:varchar(500);not null"`
	FileName       string                     `gorm:"type:varchar(255);not null"`
	ContentType    string                     `gorm:"type:varchar(100);not null"`
	FileSize       int64                      `gorm:"not null"`
	UploadedByID   uuid.UUID                  `gorm:"type:uuid;not null"`
	UploadedByRole origination.Role           `gorm:"type:varchar(20);not null"`
	ReviewedByID   *uuid.UUID                 `gorm:"type:uuid"`
	ReviewedByRole *origination.Role          `gorm:"type:varchar(20)"`
	ReviewComment  string                     `gorm:"type:text"`
	ReviewedAt     *time.Time
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document
func (m *DocumentModel) ToDomain() *origination.Document {
	doc := &origination.Document{
		BaseEntity:    m.entity(),
		ApplicationID: m.ApplicationID,
		Type:          m.Type,
		Status:        m.Status,
		Version:       m.Version,
		File: origination.FileRef{
			StorageKey:  m.StorageKey,
			FileName:    m.FileName,
			ContentType: m.ContentType,
			Size:        m.FileSize,
		},
		UploadedBy: origination.ActorRef{
			UserID: m.UploadedByID,
			Role:   m.UploadedByRole,
		},
		ReviewComment: m.ReviewComment,
		ReviewedAt:    m.ReviewedAt,
	}
	if m.ReviewedByID != nil {
		reviewer := origination.ActorRef{UserID: *m.ReviewedByID}
		if m.ReviewedByRole != nil {
			reviewer.Role = *m.ReviewedByRole
		}
		doc.ReviewedBy = &reviewer
	}
	return doc
}

// FromDomain populates the persistence model from a domain Document
func (m *DocumentModel) FromDomain(d *origination.Document) {
	m.BaseModel = baseModelOf(d.BaseEntity)
	m.ApplicationID = d.ApplicationID
	m.Type = d.Type
	m.Status = d.Status
	m.Version = d.Version
	m.StorageKey = d.File.StorageKey
	m.FileName = d.File.FileName
	m.ContentType = d.File.ContentType
	m.FileSize = d.File.Size
	m.UploadedByID = d.UploadedBy.UserID
	m.UploadedByRole = d.UploadedBy.Role
	m.ReviewComment = d.ReviewComment
	m.ReviewedAt = d.ReviewedAt
	m.ReviewedByID = nil
	m.ReviewedByRole = nil
	if d.ReviewedBy != nil {
		id, role := d.ReviewedBy.UserID, d.ReviewedBy.Role
		m.ReviewedByID = &id
		m.ReviewedByRole = &role
	}
}

// DocumentModelFromDomain creates a new persistence model from a domain Document
func DocumentModelFromDomain(d *origination.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}
