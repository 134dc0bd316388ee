package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxAppendAttempts bounds retries when concurrent appends race for a sequence
const maxAppendAttempts = 5

// GormChatMessageRepository implements ChatMessageRepository using GORM.
// Messages are append-only and ordered by a per-application sequence.
type GormChatMessageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormChatMessageRepository creates a new GormChatMessageRepository
func NewGormChatMessageRepository(db *gorm.DB) *GormChatMessageRepository {
	return &GormChatMessageRepository{db: db, now: time.Now}
}

// Append assigns msg the next sequence of its application and inserts it.
// CreatedAt never goes backwards within an application even if clocks do.
// Each attempt runs in its own (nested) transaction so a lost race on the
// unique (application_id, sequence) index only rolls back to the savepoint.
func (r *GormChatMessageRepository) Append(ctx context.Context, msg *origination.ChatMessage) error {
	var err error
	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.appendOnce(tx, msg)
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return err
}

func (r *GormChatMessageRepository) appendOnce(tx *gorm.DB, msg *origination.ChatMessage) error {
	var last models.ChatMessageModel
	err := tx.Select("sequence", "created_at").
		Where("application_id = ?", msg.ApplicationID).
		Order("sequence DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return err
	}

	createdAt := r.now()
	if last.CreatedAt.After(createdAt) {
		createdAt = last.CreatedAt
	}

	model := models.ChatMessageModelFromDomain(msg)
	model.Sequence = last.Sequence + 1
	model.CreatedAt = createdAt
	if err := tx.Create(model).Error; err != nil {
		return err
	}

	msg.Sequence = model.Sequence
	msg.CreatedAt = model.CreatedAt
	return nil
}

// ListAfter returns up to limit messages with sequence > since in sequence order
func (r *GormChatMessageRepository) ListAfter(ctx context.Context, applicationID uuid.UUID, since int64, limit int) ([]origination.ChatMessage, error) {
	query := r.db.WithContext(ctx).
		Where("application_id = ? AND sequence > ?", applicationID, since).
		Order("sequence ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var msgModels []models.ChatMessageModel
	if err := query.Find(&msgModels).Error; err != nil {
		return nil, err
	}

	msgs := make([]origination.ChatMessage, len(msgModels))
	for i := range msgModels {
		msgs[i] = *msgModels[i].ToDomain()
	}
	return msgs, nil
}

// Ensure GormChatMessageRepository implements ChatMessageRepository
var _ origination.ChatMessageRepository = (*GormChatMessageRepository)(nil)
