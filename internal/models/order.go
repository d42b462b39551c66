package models

import (
	"time"

	"gorm.io/gorm"
)

// Order is a payment order. AmountPaise is the server-computed price
// in minor units; client-sent amounts are never stored.
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`
	UserID          uint           `gorm:"index;not null" json:"user_id"`
	Purpose         string         `gorm:"index;not null" json:"purpose"`
	AmountPaise     int64          `gorm:"not null" json:"amount_paise"`
	Currency        string         `gorm:"not null;default:'INR'" json:"currency"`
	Status          string         `gorm:"index;not null" json:"status"`
	RazorpayOrderID string         `gorm:"uniqueIndex" json:"razorpay_order_id"`
	Receipt         string         `gorm:"type:varchar(64)" json:"receipt"`
	QRCount         int            `gorm:"not null;default:0" json:"qr_count,omitempty"`
	Metadata        JSON           `gorm:"type:json" json:"metadata,omitempty"`
	ExpiresAt       *time.Time     `gorm:"index" json:"expires_at"`
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Payments []Payment `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

// TableName names the table.
func (Order) TableName() string {
	return "orders"
}
