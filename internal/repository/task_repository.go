package repository

import (
	"context"

	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/gorm"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// GetByID finds a task by ID
	GetByID(ctx context.Context, id uint64) (*models.Task, error)

	// GetAllWhere lists tasks matching all scopes
	GetAllWhere(ctx context.Context, scopes ...Scope) ([]models.Task, error)

	// Count counts tasks matching all scopes
	Count(ctx context.Context, scopes ...Scope) (int64, error)

	// Create inserts a new task
	Create(ctx context.Context, task *models.Task) (*models.Task, error)

	// Update applies a partial update to a task
	Update(ctx context.Context, id uint64, patch Patch[models.Task]) (*models.Task, error)

	// Delete removes a task
	Delete(ctx context.Context, id uint64) error
}

// NewTaskRepository creates a new TaskRepository backed by the generic GORM store
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return New[models.Task](db)
}
