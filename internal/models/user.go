package models

import (
	"strings"
	"time"
)

type User struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`

	// Relations
	Tasks []Task `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// NewUser builds a user with a normalized email and its creation time set.
func NewUser(username, email, passwordHash string) *User {
	return &User{
		Username:     username,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch holds the user fields an update may change. Nil fields are left untouched.
type UserPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
}

// Apply copies the set fields onto u and returns the affected columns.
func (p UserPatch) Apply(u *User) []string {
	var columns []string
	if p.Username != nil {
		u.Username = *p.Username
		columns = append(columns, "username")
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
		columns = append(columns, "email")
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
		columns = append(columns, "password_hash")
	}
	return columns
}
