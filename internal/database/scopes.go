package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/task-tracker/internal/utils"
)

// Paginate limits a query to the page described by params.
// A zero Limit leaves the query unbounded.
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params.Limit <= 0 {
			return db
		}
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}
