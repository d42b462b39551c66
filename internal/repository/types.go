package repository

import "time"

// OrderListFilter filters order list queries.
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	Purpose     string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PaymentListFilter filters payment list queries.
type PaymentListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderID     uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WebhookEventListFilter filters webhook event list queries.
type WebhookEventListFilter struct {
	Page          int
	PageSize      int
	EventType     string
	OnlyUnhandled bool
	ReceivedFrom  *time.Time
	ReceivedTo    *time.Time
}

// QRCodeListFilter filters QR code list queries.
type QRCodeListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	OrderID  uint
	Status   string
}
