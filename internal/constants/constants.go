package constants

// Order status constants
const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
)

// Payment status constants
const (
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusFailed     = "failed"
)

// Payment purpose constants
const (
	PurposePremiumFeatures = "premium_features"
	PurposeQRPurchase      = "qr_purchase"
	PurposePetRegistration = "pet_registration"
)

// Razorpay webhook event types
const (
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventPaymentAuthorized = "payment.authorized"
	EventOrderPaid         = "order.paid"
)

// QR code status constants
const (
	QRStatusPooled   = "pooled"
	QRStatusAssigned = "assigned"
	QRStatusActive   = "active"
)

// User status constants
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

// User role constants
const (
	UserRolePetOwner = "pet_owner"
	UserRoleAdmin    = "admin"
)

// Queue names
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// Async task names
const (
	TaskQRFulfillment       = "order:qr_fulfillment"
	TaskPaymentNotification = "payment:notification"
)
