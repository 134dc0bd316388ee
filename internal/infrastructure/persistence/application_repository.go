package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"github.com/finhub/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormApplicationRepository implements ApplicationRepository using GORM
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewGormApplicationRepository creates a new GormApplicationRepository
func NewGormApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// FindByID finds an application by its ID
func (r *GormApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*origination.Application, error) {
	var model models.ApplicationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists applications matching filter and the total count before pagination
func (r *GormApplicationRepository) FindAll(ctx context.Context, filter origination.ApplicationFilter) ([]origination.Application, int64, error) {
	var total int64
	if err := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.ApplicationModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []origination.Application{}, 0, nil
	}

	var appModels []models.ApplicationModel
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.ApplicationModel{}), filter).
		Find(&appModels).Error; err != nil {
		return nil, 0, err
	}
	return toDomainApplications(appModels), total, nil
}

// FindSubmittedInStatuses lists applications with a bank ticket in one of
// statuses. Never-synced rows come first, then the least recently synced.
// limit <= 0 returns every match.
func (r *GormApplicationRepository) FindSubmittedInStatuses(ctx context.Context, statuses []origination.ApplicationStatus, limit int) ([]origination.Application, error) {
	if len(statuses) == 0 {
		return []origination.Application{}, nil
	}

	query := r.db.WithContext(ctx).
		Where("external_id IS NOT NULL AND status IN ?", statuses).
		Order("last_synced_at ASC NULLS FIRST").
		Order("submitted_to_bank_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var appModels []models.ApplicationModel
	if err := query.Find(&appModels).Error; err != nil {
		return nil, err
	}
	return toDomainApplications(appModels), nil
}

// Create inserts a new application
func (r *GormApplicationRepository) Create(ctx context.Context, app *origination.Application) error {
	model := models.ApplicationModelFromDomain(app)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeConflict, "Application already exists")
		}
		return err
	}
	return nil
}

// SaveWithLock saves the application with optimistic locking.
// Returns a CONFLICT error when the stored version differs from app.Version.
// On success app.Version is incremented.
func (r *GormApplicationRepository) SaveWithLock(ctx context.Context, app *origination.Application) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current struct{ Version int }
		if err := tx.Model(&models.ApplicationModel{}).
			Select("version").
			Where("id = ?", app.ID).
			Take(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		if current.Version != app.Version {
			return shared.ErrConflict
		}

		model := models.ApplicationModelFromDomain(app)
		model.Version = current.Version + 1
		model.UpdatedAt = time.Now()

		result := tx.Model(&models.ApplicationModel{}).
			Where("id = ? AND version = ?", app.ID, current.Version).
			Updates(model.MutableColumns())
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				return shared.NewDomainError(shared.CodeConflict, "Bank ticket is already assigned to another application")
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConflict
		}

		app.Version = model.Version
		app.UpdatedAt = model.UpdatedAt
		return nil
	})
}

// applyFilter applies filtering, ordering and pagination
func (r *GormApplicationRepository) applyFilter(query *gorm.DB, filter origination.ApplicationFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	query = query.Order(applicationSortColumns.orderClause(filter.OrderBy, filter.OrderDir, "created_at"))

	if limit := filter.Limit(); limit > 0 {
		query = query.Offset(filter.Offset()).Limit(limit)
	}
	return query
}

// applyFilterWithoutPagination applies the scope and attribute filters
func (r *GormApplicationRepository) applyFilterWithoutPagination(query *gorm.DB, filter origination.ApplicationFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ProductType != nil {
		query = query.Where("product_type = ?", *filter.ProductType)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedBy)
	}
	if filter.TargetBankID != nil {
		query = query.Where("target_bank_id = ?", *filter.TargetBankID)
	}

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

func toDomainApplications(appModels []models.ApplicationModel) []origination.Application {
	apps := make([]origination.Application, len(appModels))
	for i := range appModels {
		apps[i] = *appModels[i].ToDomain()
	}
	return apps
}

// Ensure GormApplicationRepository implements ApplicationRepository
var _ origination.ApplicationRepository = (*GormApplicationRepository)(nil)
