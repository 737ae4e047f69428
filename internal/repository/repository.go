package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope narrows a query. Scopes passed together are combined with AND.
type Scope = func(*gorm.DB) *gorm.DB

// Patch applies a partial update to an entity and reports the columns it changed.
type Patch[T any] interface {
	Apply(entity *T) []string
}

// Repository is a GORM-backed store for a single entity type.
// Every write runs in its own transaction on the bound connection.
type Repository[T any] struct {
	db   *gorm.DB
	name string
}

// New creates a Repository for T on db
func New[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{
		db:   db,
		name: reflect.TypeOf((*T)(nil)).Elem().Name(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *Repository[T]) WithTx(tx *gorm.DB) *Repository[T] {
	return &Repository[T]{db: tx, name: r.name}
}

// GetAll returns every row of the table
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.GetAllWhere(ctx)
}

// GetByID returns the row with the given primary key
func (r *Repository[T]) GetByID(ctx context.Context, id uint64) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).First(&entity, id).Error; err != nil {
		return nil, r.translate(id, err)
	}
	return &entity, nil
}

// GetAllWhere returns the rows matching all scopes. No match yields an empty slice.
func (r *Repository[T]) GetAllWhere(ctx context.Context, scopes ...Scope) ([]T, error) {
	rows := make([]T, 0)
	if err := r.db.WithContext(ctx).Scopes(scopes...).Find(&rows).Error; err != nil {
		return nil, r.translate(0, err)
	}
	return rows, nil
}

// Count returns the number of rows matching all scopes
func (r *Repository[T]) Count(ctx context.Context, scopes ...Scope) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Count(&total).Error; err != nil {
		return 0, r.translate(0, err)
	}
	return total, nil
}

// Create inserts entity and fills in its generated fields
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
	if err != nil {
		return nil, r.translate(0, err)
	}
	return entity, nil
}

// Update applies patch to the row with the given id and returns the refreshed row
func (r *Repository[T]) Update(ctx context.Context, id uint64, patch Patch[T]) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entity, id).Error; err != nil {
			return err
		}

		columns := patch.Apply(&entity)
		if len(columns) > 0 {
			if err := tx.Model(&entity).Select(columns).Updates(&entity).Error; err != nil {
				return err
			}
		}

		return tx.First(&entity, id).Error
	})
	if err != nil {
		return nil, r.translate(id, err)
	}
	return &entity, nil
}

// Delete removes the row with the given id
func (r *Repository[T]) Delete(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity T
		if err := tx.First(&entity, id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity).Error
	})
	if err != nil {
		return r.translate(id, err)
	}
	return nil
}

func (r *Repository[T]) translate(id uint64, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s with id %d: %w", r.name, id, ErrNotFound)
	case isConstraintError(err):
		return fmt.Errorf("%s: %w: %v", r.name, ErrConstraintViolation, err)
	default:
		return err
	}
}

// Eq matches rows whose column equals value
func Eq(column string, value any) Scope {
	return Cmp(column, OpEq, value)
}

// Cmp matches rows where "column op value" holds
func Cmp(column string, op Operator, value any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		if !op.valid() {
			_ = db.AddError(fmt.Errorf("%w: %q", ErrInvalidOperator, op))
			return db
		}
		return db.Where(clause.Expr{
			SQL:  "? " + string(op) + " ?",
			Vars: []any{clause.Column{Name: column}, value},
		})
	}
}

// OrderBy sorts the result by column
func OrderBy(column string, desc bool) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc})
	}
}

// Operator is a comparison accepted by Cmp
type Operator string

const (
	OpEq  Operator = "="
	OpNeq Operator = "<>"
	OpLt  Operator = "<"
	OpLte Operator = "<="
	OpGt  Operator = ">"
	OpGte Operator = ">="
)

func (o Operator) valid() bool {
	switch o {
	case OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}
