package persistence

import (
	"context"
	"errors"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/finhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDocumentRepository implements DocumentRepository using GORM.
// Document rows are never deleted; a replacement is a new version.
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document version by its ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*origination.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByApplication returns every version of every document of an application
func (r *GormDocumentRepository) FindByApplication(ctx context.Context, applicationID uuid.UUID) ([]origination.Document, error) {
	var docModels []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("type ASC, version ASC").
		Find(&docModels).Error; err != nil {
		return nil, err
	}

	docs := make([]origination.Document, len(docModels))
	for i := range docModels {
		docs[i] = *docModels[i].ToDomain()
	}
	return docs, nil
}

// Create inserts a new document version.
// A concurrent upload of the same (application, type, version) yields CONFLICT.
func (r *GormDocumentRepository) Create(ctx context.Context, doc *origination.Document) error {
	if err := r.db.WithContext(ctx).Create(models.DocumentModelFromDomain(doc)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeConflict, "Document version was uploaded concurrently, retry the upload")
		}
		return err
	}
	return nil
}

// UpdateReview stores the review verdict. Only a pending row is updated,
// so a verdict is never overwritten.
func (r *GormDocumentRepository) UpdateReview(ctx context.Context, doc *origination.Document) error {
	model := models.DocumentModelFromDomain(doc)
	result := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("id = ? AND status = ?", doc.ID, origination.DocumentStatusPending).
		Updates(map[string]any{
			"status":           model.Status,
			"reviewed_by_id":   model.ReviewedByID,
			"reviewed_by_role": model.ReviewedByRole,
			"review_comment":   model.ReviewComment,
			"reviewed_at":      model.ReviewedAt,
			"updated_at":       model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConflict, "Document was reviewed by another process")
	}
	return nil
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ origination.DocumentRepository = (*GormDocumentRepository)(nil)
