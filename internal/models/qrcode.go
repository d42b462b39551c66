package models

import (
	"time"

	"gorm.io/gorm"
)

// QRCode is a pet identification tag. Codes start pooled, get assigned
// to a user when a qr_purchase order is paid, and become active once
// attached to a pet.
type QRCode struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Code        string         `gorm:"uniqueIndex;not null" json:"code"`
	Status      string         `gorm:"index;not null;default:'pooled'" json:"status"`
	UserID      *uint          `gorm:"index" json:"user_id,omitempty"`
	OrderID     *uint          `gorm:"index" json:"order_id,omitempty"`
	AssignedAt  *time.Time     `json:"assigned_at"`
	ActivatedAt *time.Time     `json:"activated_at"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName names the table.
func (QRCode) TableName() string {
	return "qr_codes"
}
