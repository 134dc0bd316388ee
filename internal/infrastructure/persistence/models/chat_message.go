package models

import (
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/google/uuid"
)

// ChatMessageModel is the persistence model for an application chat message.
// Rows are append-only; (application_id, sequence) is unique.
type ChatMessageModel struct {
	ID                    uuid.UUID        `gorm:"type:uuid;primary_key"`
	ApplicationID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_chat_messages_app_sequence,priority:1"`
	Sequence              int64            `gorm:"not null;uniqueIndex:uq_chat_messages_app_sequence,priority:2"`
	SenderID              uuid.UUID        `gorm:"type:uuid;not null"`
	SenderRole            origination.Role `gorm:"type:varchar(20);not null"`
	Content               string           `gorm:"type:text"`
	AttachmentKey         *string          `gorm:"type:varchar(500)"`
	AttachmentName        *string          `gorm:"type:varchar(255)"`
	AttachmentContentType *string          `gorm:"type:varchar(100)"`
	AttachmentSize        *int64
	CreatedAt             time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChatMessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts the persistence model to a domain ChatMessage
func (m *ChatMessageModel) ToDomain() *origination.ChatMessage {
	msg := &origination.ChatMessage{
		ID:            m.ID,
		ApplicationID: m.ApplicationID,
		Sender: origination.ActorRef{
			UserID: m.SenderID,
			Role:   m.SenderRole,
		},
		Content:   m.Content,
		Sequence:  m.Sequence,
		CreatedAt: m.CreatedAt,
	}
	if m.AttachmentKey != nil {
		file := origination.FileRef{StorageKey: *m.AttachmentKey}
		if m.AttachmentName != nil {
			file.FileName = *m.AttachmentName
		}
		if m.AttachmentContentType != nil {
			file.ContentType = *m.AttachmentContentType
		}
		if m.AttachmentSize != nil {
			file.Size = *m.AttachmentSize
		}
		msg.Attachment = &file
	}
	return msg
}

// FromDomain populates the persistence model from a domain ChatMessage
func (m *ChatMessageModel) FromDomain(msg *origination.ChatMessage) {
	m.ID = msg.ID
	m.ApplicationID = msg.ApplicationID
	m.Sequence = msg.Sequence
	m.SenderID = msg.Sender.UserID
	m.SenderRole = msg.Sender.Role
	m.Content = msg.Content
	m.CreatedAt = msg.CreatedAt
	m.AttachmentKey, m.AttachmentName, m.AttachmentContentType, m.AttachmentSize = nil, nil, nil, nil
	if a := msg.Attachment; a != nil {
		key, name, contentType, size := a.StorageKey, a.FileName, a.ContentType, a.Size
		m.AttachmentKey = &key
		m.AttachmentName = &name
		m.AttachmentContentType = &contentType
		m.AttachmentSize = &size
	}
}

// ChatMessageModelFromDomain creates a new persistence model from a domain ChatMessage
func ChatMessageModelFromDomain(msg *origination.ChatMessage) *ChatMessageModel {
	m := &ChatMessageModel{}
	m.FromDomain(msg)
	return m
}
