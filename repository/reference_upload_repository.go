package repository

import (
	"context"
	"fmt"

	"github.com/gridops/loadshed-review/models"
	"gorm.io/gorm"
)

// ReferenceUploadRepositoryImpl implements ReferenceUploadRepository interface
type ReferenceUploadRepositoryImpl struct {
	*BaseRepository[models.ReferenceUpload, models.ReferenceUploadFilter]
}

// NewReferenceUploadRepository creates a new upload audit repository
func NewReferenceUploadRepository(db *gorm.DB) ReferenceUploadRepository {
	return &ReferenceUploadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ReferenceUpload, models.ReferenceUploadFilter](db),
	}
}

// ByFilter retrieves upload attempts matching the filter
func (r *ReferenceUploadRepositoryImpl) ByFilter(ctx context.Context, filter models.ReferenceUploadFilter, orderBy string, limit, offset int) ([]*models.ReferenceUpload, error) {
	db := r.applyFilter(r.getDB(ctx), filter)

	if orderBy == "" {
		orderBy = "created_at DESC, id DESC"
	}
	db = db.Order(orderBy)
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var uploads []*models.ReferenceUpload
	if err := db.Find(&uploads).Error; err != nil {
		return nil, fmt.Errorf("failed to find uploads by filter: %w", err)
	}

	return uploads, nil
}

// Count returns the number of upload attempts matching the filter
func (r *ReferenceUploadRepositoryImpl) Count(ctx context.Context, filter models.ReferenceUploadFilter) (int64, error) {
	db := r.applyFilter(r.getDB(ctx).Model(&models.ReferenceUpload{}), filter)

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count uploads: %w", err)
	}

	return count, nil
}

// Exists checks if any upload attempt matches the filter
func (r *ReferenceUploadRepositoryImpl) Exists(ctx context.Context, filter models.ReferenceUploadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ReferenceUploadRepositoryImpl) applyFilter(db *gorm.DB, filter models.ReferenceUploadFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.SessionID != nil {
		db = db.Where("session_id = ?", *filter.SessionID)
	}
	if filter.Kind != nil {
		db = db.Where("kind = ?", *filter.Kind)
	}
	if filter.Success != nil {
		db = db.Where("success = ?", *filter.Success)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
