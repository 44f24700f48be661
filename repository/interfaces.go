// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// SimulationSaveRepository defines operations for saved simulator snapshots
type SimulationSaveRepository interface {
	Repository[models.SimulationSave, models.SimulationSaveFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.SimulationSave, error)
	SaveWithRows(ctx context.Context, save *models.SimulationSave) error
}

// ReferenceUploadRepository defines operations for the reference upload audit trail
type ReferenceUploadRepository interface {
	Repository[models.ReferenceUpload, models.ReferenceUploadFilter]
}
