package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/models"
	"gorm.io/gorm"
)

// SimulationSaveRepositoryImpl implements SimulationSaveRepository interface
type SimulationSaveRepositoryImpl struct {
	*BaseRepository[models.SimulationSave, models.SimulationSaveFilter]
}

// NewSimulationSaveRepository creates a new saved simulation repository
func NewSimulationSaveRepository(db *gorm.DB) SimulationSaveRepository {
	return &SimulationSaveRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SimulationSave, models.SimulationSaveFilter](db),
	}
}

// ByUUID retrieves a saved simulation with its rows
func (r *SimulationSaveRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.SimulationSave, error) {
	db := r.getDB(ctx)

	var save models.SimulationSave
	err := db.Where("uuid = ?", id).
		Preload("Rows", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&save).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find saved simulation by UUID: %w", err)
	}

	return &save, nil
}

// SaveWithRows inserts the header and its rows atomically
func (r *SimulationSaveRepositoryImpl) SaveWithRows(ctx context.Context, save *models.SimulationSave) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				err = db.Commit().Error
			}
		}()
	}

	rows := save.Rows
	save.Rows = nil
	if err = db.Create(save).Error; err != nil {
		return fmt.Errorf("failed to save simulation header: %w", err)
	}
	for i := range rows {
		rows[i].SaveID = save.ID
	}
	if len(rows) > 0 {
		if err = db.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("failed to save simulation rows: %w", err)
		}
	}
	save.Rows = rows

	return nil
}

// ByFilter retrieves saved simulations matching the filter
func (r *SimulationSaveRepositoryImpl) ByFilter(ctx context.Context, filter models.SimulationSaveFilter, orderBy string, limit, offset int) ([]*models.SimulationSave, error) {
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

	var saves []*models.SimulationSave
	if err := db.Find(&saves).Error; err != nil {
		return nil, fmt.Errorf("failed to find saved simulations by filter: %w", err)
	}

	return saves, nil
}

// Count returns the number of saved simulations matching the filter
func (r *SimulationSaveRepositoryImpl) Count(ctx context.Context, filter models.SimulationSaveFilter) (int64, error) {
	db := r.applyFilter(r.getDB(ctx).Model(&models.SimulationSave{}), filter)

	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count saved simulations: %w", err)
	}

	return count, nil
}

// Exists checks if any saved simulation matches the filter
func (r *SimulationSaveRepositoryImpl) Exists(ctx context.Context, filter models.SimulationSaveFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *SimulationSaveRepositoryImpl) applyFilter(db *gorm.DB, filter models.SimulationSaveFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.SessionID != nil {
		db = db.Where("session_id = ?", *filter.SessionID)
	}
	if filter.TargetColumn != nil {
		db = db.Where("target_column = ?", *filter.TargetColumn)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
