package repository

import (
	"context"

	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a new user
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID finds a user by ID
	GetByID(ctx context.Context, id uint64) (*models.User, error)

	// Update applies a partial update to a user
	Update(ctx context.Context, id uint64, patch Patch[models.User]) (*models.User, error)

	// Delete removes a user; the database cascades to their tasks
	Delete(ctx context.Context, id uint64) error

	// FindByUsername finds a user by exact username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindByEmail finds a user by normalized email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByLogin finds a user whose username or normalized email matches identifier
	FindByLogin(ctx context.Context, identifier string) (*models.User, error)
}

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	*Repository[models.User]
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{Repository: New[models.User](db)}
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, Eq("username", username))
}

// FindByEmail finds a user by email, normalizing it first
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, Eq("email", models.NormalizeEmail(email)))
}

// FindByLogin matches identifier against the username as given and the email normalized
func (r *GormUserRepository) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	byLogin := func(db *gorm.DB) *gorm.DB {
		return db.Where("username = ? OR email = ?", identifier, models.NormalizeEmail(identifier))
	}
	return r.first(ctx, byLogin)
}

func (r *GormUserRepository) first(ctx context.Context, scopes ...Scope) (*models.User, error) {
	users, err := r.GetAllWhere(ctx, append(scopes, OrderBy("id", false), limitOne)...)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

func limitOne(db *gorm.DB) *gorm.DB {
	return db.Limit(1)
}
