package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an account holder (pet owner or admin).
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Phone        string         `gorm:"uniqueIndex;not null" json:"phone"`
	Email        string         `gorm:"index" json:"email,omitempty"`
	PasswordHash string         `gorm:"not null" json:"-"`
	DisplayName  string         `gorm:"default:''" json:"display_name"`
	Role         string         `gorm:"default:'pet_owner'" json:"role"`
	Status       string         `gorm:"default:'active'" json:"status"`
	PremiumUntil *time.Time     `json:"premium_until,omitempty"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName names the table.
func (User) TableName() string {
	return "users"
}
