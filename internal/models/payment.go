package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment is one gateway payment attempt against an order. The unique
// index on RazorpayPaymentID is what makes verification idempotent.
type Payment struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	OrderID           uint           `gorm:"index;not null" json:"order_id"`
	UserID            uint           `gorm:"index;not null" json:"user_id"`
	RazorpayPaymentID string         `gorm:"uniqueIndex;not null" json:"razorpay_payment_id"`
	RazorpayOrderID   string         `gorm:"index;not null" json:"razorpay_order_id"`
	AmountPaise       int64          `gorm:"not null" json:"amount_paise"`
	Currency          string         `gorm:"not null;default:'INR'" json:"currency"`
	Status            string         `gorm:"index;not null" json:"status"`
	SignatureValid    bool           `gorm:"not null;default:false" json:"signature_valid"`
	Method            string         `gorm:"type:varchar(32)" json:"method,omitempty"`
	ErrorCode         string         `gorm:"type:varchar(64)" json:"error_code,omitempty"`
	ErrorDescription  string         `gorm:"type:text" json:"error_description,omitempty"`
	ProviderPayload   JSON           `gorm:"type:json" json:"provider_payload,omitempty"`
	VerifiedAt        *time.Time     `gorm:"index" json:"verified_at"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName names the table.
func (Payment) TableName() string {
	return "payments"
}
