// Package repository provides GORM-backed storage for the application's entities.
// The sentinel errors below let services tell a missing row apart from a
// conflicting write without looking at driver-specific error types.
package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolation is returned when a write breaks a unique or foreign key constraint.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrInvalidOperator is returned when Cmp receives an unsupported comparison.
	ErrInvalidOperator = errors.New("invalid comparison operator")
)

func isConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	// Fallback for connections opened without TranslateError.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "foreign key constraint")
}
