package models

import (
	"time"
)

// WebhookEvent records every received gateway webhook. EventID carries
// the unique constraint that deduplicates redeliveries; ProcessedAt is
// set only after the event's side effects have committed. RawBody keeps
// the exact bytes the signature was computed over.
type WebhookEvent struct {
	ID                uint       `gorm:"primarykey" json:"id"`
	EventID           string     `gorm:"uniqueIndex;not null" json:"event_id"`
	EventType         string     `gorm:"index;not null" json:"event_type"`
	RazorpayOrderID   string     `gorm:"index" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string     `gorm:"index" json:"razorpay_payment_id,omitempty"`
	RawBody           []byte     `gorm:"type:blob" json:"-"`
	Signature         string     `gorm:"type:varchar(128)" json:"-"`
	ProcessError      string     `gorm:"type:text" json:"process_error,omitempty"`
	ReceivedAt        time.Time  `gorm:"index" json:"received_at"`
	ProcessedAt       *time.Time `gorm:"index" json:"processed_at"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"index" json:"updated_at"`
}

// TableName names the table.
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
